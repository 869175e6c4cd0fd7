package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estate-assistant-backend/internal/marketplace"
	"estate-assistant-backend/internal/server"
)

func TestRunREPL(t *testing.T) {
	log, _ := test.NewNullLogger()
	backend := &server.Backend{
		Marketplace: marketplace.NewClient("http://127.0.0.1:0", nil),
		Log:         log,
	}
	conv, err := backend.NewConversation("cli")
	require.NoError(t, err)
	defer conv.Close()

	in := strings.NewReader("hello\n\n/clear\n/quit\nnever read\n")
	var out bytes.Buffer
	require.NoError(t, runREPL(context.Background(), conv, in, &out))

	text := out.String()
	assert.Equal(t, 2, strings.Count(text, "Welcome to your AI Real Estate Assistant"))
	assert.Contains(t, text, "try: ")
	// welcome, user, greeting reply are gone after /clear
	assert.Len(t, conv.Session().Messages, 1)
}

func TestRunREPLStopsAtEOF(t *testing.T) {
	log, _ := test.NewNullLogger()
	backend := &server.Backend{
		Marketplace: marketplace.NewClient("http://127.0.0.1:0", nil),
		Log:         log,
	}
	conv, err := backend.NewConversation("cli")
	require.NoError(t, err)
	defer conv.Close()

	var out bytes.Buffer
	require.NoError(t, runREPL(context.Background(), conv, strings.NewReader("hi"), &out))
	assert.Len(t, conv.Session().Messages, 3)
}

func TestRunREPLExecutesActions(t *testing.T) {
	log, _ := test.NewNullLogger()
	backend := &server.Backend{
		Marketplace: marketplace.NewClient("http://127.0.0.1:0", nil),
		Log:         log,
	}
	conv, err := backend.NewConversation("cli")
	require.NoError(t, err)
	defer conv.Close()

	in := strings.NewReader("my bookings\n/do 2\n/do 9\n/do x\n/quit\n")
	var out bytes.Buffer
	require.NoError(t, runREPL(context.Background(), conv, in, &out))

	text := out.String()
	assert.Contains(t, text, "[2] How to Book (show_booking_help)")
	assert.Contains(t, text, "How booking works")
	assert.Contains(t, text, `no action "9"; the last reply offers 1`)
	assert.Contains(t, text, `no action "x"`)
	// welcome, user, booking help, how-to
	assert.Len(t, conv.Session().Messages, 4)
}

func TestRunREPLNavigate(t *testing.T) {
	log, _ := test.NewNullLogger()
	backend := &server.Backend{
		Marketplace: marketplace.NewClient("http://127.0.0.1:0", nil),
		Log:         log,
	}
	conv, err := backend.NewConversation("cli")
	require.NoError(t, err)
	defer conv.Close()

	var out bytes.Buffer
	require.NoError(t, runREPL(context.Background(), conv, strings.NewReader("my bookings\n/do 1\n"), &out))
	assert.Contains(t, out.String(), "-> navigate to /bookings")
}
