package config

import (
	"github.com/danmuck/coldsign/internal/classify"
	"github.com/danmuck/coldsign/internal/decoder"
	"github.com/danmuck/coldsign/internal/protocol/frame"
	"github.com/danmuck/coldsign/internal/session"
)

func (c Config) FrameLimits() frame.Limits {
	return frame.Limits{
		MaxFrames:     uint16(c.Reassembly.MaxFrames),
		MaxFrameBytes: c.Reassembly.MaxFrameBytes,
	}
}

func (c Config) ClassifyOptions() classify.Options {
	return classify.Options{
		Limits:                c.FrameLimits(),
		OversizedPayloadBytes: c.Decoder.OversizedPayloadBytes,
	}
}

func (c Config) DecoderOptions() decoder.Options {
	return decoder.Options{MaxCallDepth: c.Decoder.MaxCallDepth}
}

func (c Config) SessionConfig() session.Config {
	return session.Config{RequireVersionOverride: c.Session.RequireVersionOverride}
}
