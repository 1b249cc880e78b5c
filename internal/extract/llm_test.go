package extract

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChatClient struct {
	content string
	err     error

	lastRequest openai.ChatCompletionRequest
}

func (f *fakeChatClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.lastRequest = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func newTestExtractor(client chatClient) *LLMExtractor {
	return &LLMExtractor{client: client, model: DefaultModel, logger: zap.NewNop()}
}

func TestExtractNames(t *testing.T) {
	client := &fakeChatClient{content: `{"first_name": "John", "last_name": "Smith"}`}
	e := newTestExtractor(client)

	first, last, found, err := e.ExtractNames(context.Background(), "I am John Smith")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "John", first)
	assert.Equal(t, "Smith", last)
	assert.Equal(t, DefaultModel, client.lastRequest.Model)
}

func TestExtractNamesFencedJSON(t *testing.T) {
	client := &fakeChatClient{content: "Here you go:\n```json\n{\"first_name\": \"Sarah\", \"last_name\": \"\"}\n```"}
	e := newTestExtractor(client)

	first, last, found, err := e.ExtractNames(context.Background(), "my name is sarah")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Sarah", first)
	assert.Empty(t, last)
}

func TestExtractNamesRejectsJunk(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty names", `{"first_name": "", "last_name": ""}`},
		{"single letter", `{"first_name": "I", "last_name": "am"}`},
		{"stop word", `{"first_name": "Appointment", "last_name": ""}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestExtractor(&fakeChatClient{content: tc.content})

			_, _, found, err := e.ExtractNames(context.Background(), "whatever")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestExtractNamesTransportError(t *testing.T) {
	e := newTestExtractor(&fakeChatClient{err: errors.New("rate limited")})

	_, _, found, err := e.ExtractNames(context.Background(), "I am John")
	require.Error(t, err)
	assert.False(t, found)
}

func TestExtractNamesNoJSON(t *testing.T) {
	e := newTestExtractor(&fakeChatClient{content: "sorry, I cannot help with that"})

	_, _, _, err := e.ExtractNames(context.Background(), "I am John")
	require.Error(t, err)
}

func TestExtractInsurance(t *testing.T) {
	client := &fakeChatClient{content: `{"carrier": "Blue Cross Blue Shield", "member_id": "123456789", "group_number": "987654"}`}
	e := newTestExtractor(client)

	ins, err := e.ExtractInsurance(context.Background(), "Blue Cross Blue Shield, member ID 123456789, group 987654")
	require.NoError(t, err)
	assert.Equal(t, Insurance{
		Carrier:     "Blue Cross Blue Shield",
		MemberID:    "123456789",
		GroupNumber: "987654",
	}, ins)
}

func TestExtractInsurancePartial(t *testing.T) {
	e := newTestExtractor(&fakeChatClient{content: `{"carrier": "Aetna", "member_id": "", "group_number": ""}`})

	ins, err := e.ExtractInsurance(context.Background(), "Aetna insurance")
	require.NoError(t, err)
	assert.Equal(t, "Aetna", ins.Carrier)
	assert.Empty(t, ins.MemberID)
	assert.Empty(t, ins.GroupNumber)
}
