package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev/bravebird/signup-automation-go/pkg/frameworks"
	"dev/bravebird/signup-automation-go/pkg/generator"
	"dev/bravebird/signup-automation-go/pkg/scripts"
)

type fakePrompter struct {
	selectIdx   int
	input       string
	selectCalls int
	inputCalls  int
}

func (f *fakePrompter) Select(message string, options []string) (int, error) {
	f.selectCalls++
	return f.selectIdx, nil
}

func (f *fakePrompter) Input(message string) (string, error) {
	f.inputCalls++
	return f.input, nil
}

func newGenerator(t *testing.T) *generator.Service {
	return generator.New(generator.Options{Writer: scripts.NewWriter(t.TempDir())})
}

func TestRunInteractive(t *testing.T) {
	p := &fakePrompter{selectIdx: 3, input: "Successful sign up"}
	var out bytes.Buffer

	err := run(context.Background(), &out, newGenerator(t), p, options{})
	require.NoError(t, err)

	assert.Equal(t, 1, p.selectCalls)
	assert.Equal(t, 1, p.inputCalls)
	assert.Contains(t, out.String(), "Generating Playwright (JavaScript) test script...")
	assert.Contains(t, out.String(), "=== Generated Test Script ===")
	assert.Contains(t, out.String(), "Script saved to: ")
	assert.Contains(t, out.String(), "Script generation complete!")
}

func TestRunWithFlags(t *testing.T) {
	p := &fakePrompter{}
	var out bytes.Buffer
	gen := newGenerator(t)

	err := run(context.Background(), &out, gen, p, options{
		framework:   "6",
		requirement: "user registration",
		url:         "https://shop.test/register",
	})
	require.NoError(t, err)
	assert.Zero(t, p.selectCalls)
	assert.Zero(t, p.inputCalls)
	assert.Contains(t, out.String(), `"https://shop.test/register"`)
}

func TestRunNoProviderNoTemplate(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, newGenerator(t), &fakePrompter{}, options{
		framework:   frameworks.KeySelenium,
		requirement: "search for shoes",
	})
	assert.ErrorIs(t, err, generator.ErrNoProvider)
}

func TestChooseFramework(t *testing.T) {
	c := frameworks.Default()

	fw, err := chooseFramework(c, nil, frameworks.KeyCypress)
	require.NoError(t, err)
	assert.Equal(t, "2", fw.Choice)

	fw, err = chooseFramework(c, nil, "5")
	require.NoError(t, err)
	assert.Equal(t, frameworks.KeyRequests, fw.Key)

	_, err = chooseFramework(c, nil, "nightwatch")
	assert.ErrorIs(t, err, frameworks.ErrUnknownFramework)

	_, err = chooseFramework(c, &fakePrompter{selectIdx: -1}, "")
	assert.ErrorIs(t, err, frameworks.ErrUnknownFramework)
}
