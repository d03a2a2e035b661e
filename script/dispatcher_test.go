package script

import (
	"bytes"
	"io"
	"testing"

	"github.com/dsnet/vnscript/encoding"
	"github.com/stretchr/testify/require"
)

type fakeBuilder struct {
	Unsupported
	typ      ScriptType
	magic    []byte
	priority uint8
}

type fakeScript struct {
	Unsupported
	messages []Message
}

func (fakeScript) DefaultOutputScriptType() OutputKind { return OutputJSON }

func (s fakeScript) ExtractMessages() ([]Message, error) { return s.messages, nil }

func (fakeBuilder) DefaultEncoding() encoding.Encoding          { return encoding.UTF8 }
func (fakeBuilder) DefaultArchiveEncoding() *encoding.Encoding  { return nil }
func (b fakeBuilder) Extensions() []string                     { return []string{".fake"} }
func (b fakeBuilder) ScriptType() ScriptType                    { return b.typ }
func (fakeBuilder) IsImage() bool                               { return false }
func (fakeBuilder) IsArchive() bool                              { return false }
func (b fakeBuilder) CanCreateFile() bool                       { return false }
func (b fakeBuilder) CreateFile(io.Reader, io.Writer, encoding.Encoding) error {
	return nil
}

func (b fakeBuilder) IsThisFormat(filename string, prefix []byte) (uint8, bool) {
	if bytes.HasPrefix(prefix, b.magic) {
		return b.priority, true
	}
	return 0, false
}

func (b fakeBuilder) BuildScript(buf []byte, cfg *ExtraConfig) (Script, error) {
	return fakeScript{messages: []Message{{Message: "hi"}}}, nil
}

func TestDispatcherPicksHighestPriority(t *testing.T) {
	d := NewDispatcher()
	d.Register(fakeBuilder{typ: "low", magic: []byte("MAGIC"), priority: 10})
	d.Register(fakeBuilder{typ: "high", magic: []byte("MAGIC"), priority: 255})

	b, ok := d.Identify("x.fake", []byte("MAGIC_BODY"))
	require.True(t, ok)
	require.Equal(t, ScriptType("high"), b.ScriptType())
}

func TestDispatcherNoMatch(t *testing.T) {
	d := NewDispatcher()
	d.Register(fakeBuilder{typ: "a", magic: []byte("MAGIC"), priority: 255})

	_, ok := d.Identify("x.fake", []byte("NOPE"))
	require.False(t, ok)
}

func TestBuildScriptRoutesThroughWinningBuilder(t *testing.T) {
	d := NewDispatcher()
	d.Register(fakeBuilder{typ: "a", magic: []byte("MAGIC"), priority: 255})

	s, typ, err := d.BuildScript("x.fake", []byte("MAGIC"), &ExtraConfig{})
	require.NoError(t, err)
	require.Equal(t, ScriptType("a"), typ)

	msgs, err := s.ExtractMessages()
	require.NoError(t, err)
	require.Equal(t, []Message{{Message: "hi"}}, msgs)
}
