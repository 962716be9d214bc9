package presence

// TypingSignal tracks the local participant's typing state and decides when
// an outbound typing frame is warranted. Transitions are edge-triggered: a
// true emission happens only when input goes from empty to non-empty, and a
// false emission only on the reverse transition or an explicit blur. This
// bounds outbound presence traffic to one frame per contiguous typing burst
// rather than one per keystroke.
//
// TypingSignal is not goroutine-safe; the session manager serializes access
// to it under its own lock.
type TypingSignal struct {
	active bool
}

// OnInputChanged reports whether a typing frame should be emitted for the
// given input state, and with which status. emit is false while the state is
// unchanged (repeated keystrokes within a burst).
func (s *TypingSignal) OnInputChanged(hasContent bool) (emit bool, status bool) {
	if hasContent == s.active {
		return false, false
	}
	s.active = hasContent
	return true, hasContent
}

// OnBlur reports whether a stop-typing frame should be emitted because the
// input lost focus. It only fires when the local participant was typing.
func (s *TypingSignal) OnBlur() (emit bool) {
	if !s.active {
		return false
	}
	s.active = false
	return true
}

// Active returns whether the local participant is currently marked as typing.
func (s *TypingSignal) Active() bool {
	return s.active
}

// Reset clears the state without emitting. Used on room switch and after a
// message send, where the stop-typing frame is written out of band.
func (s *TypingSignal) Reset() {
	s.active = false
}
