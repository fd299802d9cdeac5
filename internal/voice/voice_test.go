package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/voxkb/internal/config"
)

func TestDeepgram_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/listen", r.URL.Path)
		assert.Equal(t, "nova-2", r.URL.Query().Get("model"))
		assert.Equal(t, "Token dg-key", r.Header.Get("Authorization"))
		assert.Equal(t, "audio/wav", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "RIFF....", string(body))
		_, _ = w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":" what is the refund policy ","confidence":0.98}]}]}}`))
	}))
	defer srv.Close()

	t.Setenv("VOXKB_TEST_DG", "dg-key")
	stt, err := NewSpeechToText(&config.SpeechConfig{
		Provider: "deepgram", BaseURL: srv.URL, APIKeyEnv: "VOXKB_TEST_DG", Model: "nova-2",
	}, nil)
	require.NoError(t, err)
	assert.True(t, IsAvailable(stt))

	got, err := stt.Transcribe(context.Background(), strings.NewReader("RIFF...."), "audio/wav")
	require.NoError(t, err)
	assert.Equal(t, "what is the refund policy", got)
}

func TestDeepgram_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("model") == "empty" {
			_, _ = w.Write([]byte(`{"results":{"channels":[]}}`))
			return
		}
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	t.Setenv("VOXKB_TEST_DG", "dg-key")
	for model, want := range map[string]string{"nova-2": "401", "empty": "no transcript"} {
		d, err := NewDeepgram(config.SpeechConfig{BaseURL: srv.URL, APIKeyEnv: "VOXKB_TEST_DG", Model: model}, nil)
		require.NoError(t, err)
		_, err = d.Transcribe(context.Background(), strings.NewReader("x"), "")
		assert.ErrorContains(t, err, want)
	}
}

func TestGoogleTTS_Synthesize(t *testing.T) {
	mp3 := []byte{0xff, 0xfb, 0x90, 0x64}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text:synthesize", r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("X-Goog-Api-Key"))
		var req synthesizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Hello there", req.Input.Text)
		assert.Equal(t, "en-GB", req.Voice.LanguageCode)
		assert.Equal(t, "MP3", req.AudioConfig.AudioEncoding)
		_ = json.NewEncoder(w).Encode(synthesizeResponse{AudioContent: base64.StdEncoding.EncodeToString(mp3)})
	}))
	defer srv.Close()

	t.Setenv("VOXKB_TEST_TTS", "g-key")
	tts, err := NewTextToSpeech(&config.SpeechConfig{
		Provider: "google", BaseURL: srv.URL, APIKeyEnv: "VOXKB_TEST_TTS", Language: "en-GB",
	}, nil)
	require.NoError(t, err)

	audio, err := tts.Synthesize(context.Background(), "Hello there")
	require.NoError(t, err)
	assert.Equal(t, mp3, audio.Data)
	assert.Equal(t, "audio/mpeg", audio.ContentType)
}

func TestFactories(t *testing.T) {
	stt, err := NewSpeechToText(&config.SpeechConfig{Provider: "none"}, nil)
	require.NoError(t, err)
	assert.False(t, IsAvailable(stt))
	_, err = stt.Transcribe(context.Background(), strings.NewReader(""), "")
	assert.ErrorIs(t, err, ErrUnavailable)

	tts, err := NewTextToSpeech(&config.SpeechConfig{}, nil)
	require.NoError(t, err)
	_, err = tts.Synthesize(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUnavailable)

	t.Setenv("VOXKB_TEST_MISSING", "")
	_, err = NewSpeechToText(&config.SpeechConfig{Provider: "deepgram", APIKeyEnv: "VOXKB_TEST_MISSING"}, nil)
	assert.ErrorContains(t, err, "VOXKB_TEST_MISSING")
	_, err = NewTextToSpeech(&config.SpeechConfig{Provider: "polly"}, nil)
	assert.Error(t, err)
}
