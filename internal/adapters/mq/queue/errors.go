package queue

import "errors"

// ErrQueueClosed indicates an operation was attempted on a closed queue.
var ErrQueueClosed = errors.New("queue is closed")

// ErrQueueFull indicates the queue has reached its configured capacity.
var ErrQueueFull = errors.New("queue is full")
