// Package miniaudio drives the default capture and playback devices through
// malgo. One Client owns both directions; the speech adapters share it for a
// session's duration.
package miniaudio

import (
	"context"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/vitallic/vitallic-core/core/audio"
)

const sampleRate = audio.DefaultSampleRate

type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackClient
	captureClient
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) {},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{
		audioContext: audioCtx,
	}

	if err := client.playbackClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}

	if err := client.playbackClient.Start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	if err := client.captureClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture client: %w", err)
	}

	return &client, nil
}

func (c *Client) Start(_ context.Context, onAudio func(audio []byte)) error {
	return c.captureClient.Start(onAudio)
}

func (c *Client) Stop() error {
	return c.captureClient.Stop()
}

func (c *Client) Close() {
	_ = c.captureClient.Uninit()
	_ = c.playbackClient.Uninit()
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: sampleRate,
		Format:     audio.EncodingLinear16,
	}
}

// CapturePort exposes the client's capture side behind the device contract.
func (c *Client) CapturePort() audio.Capture { return c }

// PlaybackPort exposes the client's playback side behind the device contract.
func (c *Client) PlaybackPort() audio.Playback { return &playbackPort{c} }

type playbackPort struct{ client *Client }

func (p *playbackPort) EncodingInfo() audio.EncodingInfo  { return p.client.EncodingInfo() }
func (p *playbackPort) SendAudio(chunk []byte) error      { return p.client.playbackClient.SendAudio(chunk) }
func (p *playbackPort) Drain(ctx context.Context) error   { return p.client.playbackClient.Drain(ctx) }
func (p *playbackPort) Clear()                            { p.client.playbackClient.ClearBuffer() }
