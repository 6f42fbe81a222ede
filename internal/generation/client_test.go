package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalogies(t *testing.T) {
	t.Run("JSONArray", func(t *testing.T) {
		out := parseAnalogies(`["primeira analogia", "segunda analogia"]`)
		assert.Equal(t, []string{"primeira analogia", "segunda analogia"}, out)
	})

	t.Run("FencedJSON", func(t *testing.T) {
		out := parseAnalogies("```json\n[\"uma\", \"outra\"]\n```")
		assert.Equal(t, []string{"uma", "outra"}, out)
	})

	t.Run("DropsEmptyEntries", func(t *testing.T) {
		out := parseAnalogies(`["boa", "  ", ""]`)
		assert.Equal(t, []string{"boa"}, out)
	})

	t.Run("PlainTextFallback", func(t *testing.T) {
		out := parseAnalogies("Primeira analogia aqui.\n\nSegunda analogia aqui.")
		assert.Equal(t, []string{"Primeira analogia aqui.", "Segunda analogia aqui."}, out)
	})
}

func fakeUpstream(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
}

func TestClientGenerate(t *testing.T) {
	server := fakeUpstream(t, http.StatusOK, `["analogia um", "analogia dois", "analogia três"]`)
	defer server.Close()

	client := NewClient(server.URL, "test-key", "gpt-4o-mini", 5*time.Second)

	analogies, err := client.Generate(context.Background(), "fotossíntese", "crianças de 8 anos", 3)
	require.NoError(t, err)
	assert.Len(t, analogies, 3)
}

func TestClientGenerate_UpstreamError(t *testing.T) {
	server := fakeUpstream(t, http.StatusServiceUnavailable, "")
	defer server.Close()

	client := NewClient(server.URL, "test-key", "gpt-4o-mini", 5*time.Second)

	_, err := client.Generate(context.Background(), "fotossíntese", "crianças", 3)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestClientGenerate_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "gpt-4o-mini", 5*time.Second)

	_, err := client.Generate(context.Background(), "fotossíntese", "crianças", 3)
	assert.ErrorIs(t, err, ErrUpstream)
}
