package chain

import "fmt"

// MalformedChainError reports a broker payload that cannot be normalized.
type MalformedChainError struct {
	Reason string
}

func (e *MalformedChainError) Error() string {
	return fmt.Sprintf("malformed option chain: %s", e.Reason)
}
