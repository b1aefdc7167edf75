package amqp

import (
	"encoding/json"
	"time"
)

// MonthClosedMessage announces that a month was closed. It carries the
// identifying fields and the stored ending balance; consumers reload the
// full summary from the database.
type MonthClosedMessage struct {
	MonthID           int64     `json:"month_id"`
	Year              int       `json:"year"`
	Month             int       `json:"month"`
	PrivateBalanceEnd float64   `json:"private_balance_end"`
	ClosedAt          time.Time `json:"closed_at"`
	Timestamp         time.Time `json:"timestamp"`
}

func NewMonthClosedMessage(monthID int64, year, month int, balanceEnd float64, closedAt time.Time) *MonthClosedMessage {
	return &MonthClosedMessage{
		MonthID:           monthID,
		Year:              year,
		Month:             month,
		PrivateBalanceEnd: balanceEnd,
		ClosedAt:          closedAt,
		Timestamp:         time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *MonthClosedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MonthClosedMessageFromJSON(data []byte) (*MonthClosedMessage, error) {
	var msg MonthClosedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
