package aiclient

// Signal is an advisory breaker notification.
type Signal string

const (
	SignalOpened        Signal = "opened"
	SignalClosed        Signal = "closed"
	SignalHalfOpen      Signal = "half-open"
	SignalCallRejected  Signal = "call-rejected"
	SignalCallSucceeded Signal = "call-succeeded"
	SignalCallFailed    Signal = "call-failed"
)

// Observer receives breaker signals. Implementations must not block.
type Observer interface {
	BreakerSignal(s Signal)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Signal)

func (f ObserverFunc) BreakerSignal(s Signal) { f(s) }
