package stt_test

import (
	"github.com/neutralbridge/concierge/adapters/stt"
	"github.com/neutralbridge/concierge/domain/repositories"
)

var _ repositories.SpeechToText = &stt.GoogleSpeechToText{}
