// Package channel implements a multi-producer, single-consumer FIFO queue
// used to aggregate values produced by independent goroutines.
//
// # Handles
//
//	Sender ──┐
//	Sender ──┼──► [ buffer ] ──► Receiver
//	Sender ──┘
//
// New and NewBounded return the first Sender and the only Receiver. Every
// extra producer calls Clone on an existing Sender and Close when it is
// done. The channel stays open while at least one Sender is alive; once the
// last Sender is closed the Receiver drains what is left and then reports
// end-of-stream (ok == false) instead of blocking.
//
// Unlike a plain Go channel, closing is reference counted per handle, so no
// producer has to know whether it is the last one.
//
// # Variants
//
//   - New: unbounded, Send never blocks
//   - NewBounded: Send blocks while the buffer is full (backpressure)
//
// # Ordering
//
// Messages sent by one Sender are received in send order. There is no
// ordering between different Senders, so tests with several producers
// compare sets, not sequences.
//
// # Usage Example
//
//	tx, rx := channel.New[int]()
//	for i := range 10 {
//	    txi := tx.Clone()
//	    go func() {
//	        defer txi.Close()
//	        _ = txi.Send(i)
//	    }()
//	}
//	tx.Close()
//
//	for v := range rx.All() {
//	    fmt.Println(v)
//	}
package channel
