package audio

// Drain reads from ch until the channel is closed, discarding all values.
// Use this to release a producer goroutine (e.g., a capture [Stream]'s Blocks
// channel) whose output is no longer wanted.
func Drain[T any](ch <-chan T) {
	for range ch {
	}
}
