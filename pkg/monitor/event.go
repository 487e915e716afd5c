package monitor

const (
	QuitSignal EventType = iota
	TransactionConfirmed
	TransactionUnconfirmed
)

type EventType int

func (et EventType) String() string {
	switch et {
	case QuitSignal:
		return "QuitSignal"
	case TransactionConfirmed:
		return "TransactionConfirmed"
	case TransactionUnconfirmed:
		return "TransactionUnconfirmed"
	default:
		return "Unknown"
	}
}

// Event is what observers receive on the event channel.
type Event interface {
	Type() EventType
}

type QuitEvent struct{}

func (q QuitEvent) Type() EventType {
	return QuitSignal
}

// TransactionEvent reports the confirmation state of a watched transaction.
type TransactionEvent struct {
	TxID      string
	EventType EventType
}

func (t TransactionEvent) Type() EventType {
	return t.EventType
}
