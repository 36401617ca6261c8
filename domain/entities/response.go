package entities

// ModelResponse is the decoded reply from the remote model for one audio
// turn: the reply text, zero or one synthesized audio payload (raw PCM16
// bytes, already base64-decoded), and zero or one UI trigger. It is consumed
// once by the playback scheduler and/or the trigger interpreter.
type ModelResponse struct {
	Text    string
	Audio   []byte
	Trigger *UITrigger
}

// HasAudio reports whether the response carries a speech payload.
func (r *ModelResponse) HasAudio() bool {
	return r != nil && len(r.Audio) > 0
}
