// Package transfer implements the file-upload pipeline: a bounded
// admission queue fed by session goroutines and a fixed pool of workers
// that persist each payload and notify the participants.
package transfer

import (
	"time"

	"github.com/google/uuid"
)

// Transfer is one admitted file-upload job. It is owned by the queue from
// admission until a worker claims it, then by that worker until completion.
type Transfer struct {
	ID         string
	Sender     string
	Receiver   string
	Filename   string
	Size       int64
	Data       []byte
	EnqueuedAt time.Time
}

func New(sender, receiver, filename string, data []byte) *Transfer {
	return &Transfer{
		ID:         uuid.NewString(),
		Sender:     sender,
		Receiver:   receiver,
		Filename:   filename,
		Size:       int64(len(data)),
		Data:       data,
		EnqueuedAt: time.Now(),
	}
}

var ErrQueueFull = errorString("upload queue full")

type errorString string

func (e errorString) Error() string { return string(e) }

// Queue is the bounded FIFO admission queue. Enqueue never blocks: a full
// queue is an immediate rejection, the sender gets no backpressure.
type Queue struct {
	ch chan *Transfer
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 20
	}
	return &Queue{ch: make(chan *Transfer, capacity)}
}

func (q *Queue) Enqueue(t *Transfer) error {
	select {
	case q.ch <- t:
		TransfersTotal.WithLabelValues("admitted").Inc()
		QueueDepth.Set(float64(len(q.ch)))
		return nil
	default:
		TransfersTotal.WithLabelValues("rejected").Inc()
		return ErrQueueFull
	}
}

func (q *Queue) Len() int {
	return len(q.ch)
}
