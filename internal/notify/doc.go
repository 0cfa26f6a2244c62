// Package notify delivers interview notifications. Publishing enqueues an event in the
// notification outbox; a Dispatcher drains the outbox to a webhook at least once.
package notify
