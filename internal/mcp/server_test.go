package mcp

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWithArguments(args map[string]interface{}) mcp.CallToolRequest {
	var request mcp.CallToolRequest
	request.Params.Arguments = args
	return request
}

func TestIntArgument(t *testing.T) {
	// JSON-decoded tool arguments arrive as float64 or string
	tests := []struct {
		name string
		args map[string]interface{}
		want int
	}{
		{
			name: "number argument",
			args: map[string]interface{}{"days": float64(30)},
			want: 30,
		},
		{
			name: "string argument",
			args: map[string]interface{}{"days": "30"},
			want: 30,
		},
		{
			name: "missing argument uses fallback",
			args: map[string]interface{}{},
			want: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := intArgument(requestWithArguments(tt.args), "days", 7)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntArgumentRejectsBadValues(t *testing.T) {
	_, err := intArgument(requestWithArguments(map[string]interface{}{"days": "soon"}), "days", 0)
	assert.Error(t, err)

	_, err = intArgument(requestWithArguments(map[string]interface{}{"days": true}), "days", 0)
	assert.Error(t, err)
}
