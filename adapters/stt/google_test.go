package stt_test

import (
	"github.com/satriahrh/radiocaption/adapters/stt"
	"github.com/satriahrh/radiocaption/domain/repositories"
)

var _ repositories.SpeechToText = &stt.GoogleSpeechToText{}
var _ repositories.SpeechToText = &stt.AWSSpeechToText{}
var _ repositories.SpeechToText = &stt.YandexSpeechToText{}
var _ repositories.SpeechToText = &stt.MockSpeechToText{}

var _ repositories.SpeechToTextStreaming = &stt.GoogleSpeechToTextStream{}
var _ repositories.SpeechToTextStreaming = &stt.AWSSpeechToTextStream{}
var _ repositories.SpeechToTextStreaming = &stt.YandexSpeechToTextStream{}
var _ repositories.SpeechToTextStreaming = &stt.MockSpeechToTextStream{}
