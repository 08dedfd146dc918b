package openai

import (
	"encoding/json"
	"fmt"
)

// RenderChunk formats one StreamChunk as an SSE "data:" frame.
func RenderChunk(c StreamChunk) string {
	raw, _ := json.Marshal(c)
	return fmt.Sprintf("data: %s\n\n", raw)
}

// DoneFrame is the terminal SSE frame every OpenAI-shaped stream ends with.
const DoneFrame = "data: [DONE]\n\n"
