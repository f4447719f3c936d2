package vin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestPuppetMsg_StringID(t *testing.T) {
	in := &puppetMsg{id: puppetID{text: "abc"}, vinFilename: "/tmp/vin/abc"}

	var out puppetMsg
	require.NoError(t, out.unmarshal(in.marshal()))
	assert.Equal(t, "abc", out.id.text)
	assert.False(t, out.id.numeric)
	assert.Equal(t, "/tmp/vin/abc", out.vinFilename)
}

func TestPuppetMsg_NumericIDRoundTripsAsVarint(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 42)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, "/vin/42")

	var p puppetMsg
	require.NoError(t, p.unmarshal(b))
	assert.Equal(t, "42", p.id.text)
	assert.True(t, p.id.numeric)

	req := (&idRequest{id: p.id}).marshal()
	num, typ, n := protowire.ConsumeTag(req)
	require.Greater(t, n, 0)
	assert.Equal(t, protowire.Number(1), num)
	assert.Equal(t, protowire.VarintType, typ)
}

func TestStdinContentMsg(t *testing.T) {
	in := &stdinContentMsg{id: puppetID{text: "7", numeric: true}, payload: []byte("line\n")}

	var out stdinContentMsg
	require.NoError(t, out.unmarshal(in.marshal()))
	assert.Equal(t, "7", out.id.text)
	assert.Equal(t, []byte("line\n"), out.payload)
}

func TestWalkFields_SkipsUnknown(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 9, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 1)
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, "id")

	var r idRequest
	require.NoError(t, r.unmarshal(b))
	assert.Equal(t, "id", r.id.text)
}

func TestWalkFields_Truncated(t *testing.T) {
	b := protowire.AppendTag(nil, 1, protowire.BytesType)
	b = append(b, 10) // claims 10 bytes, has none

	var r idRequest
	assert.Error(t, r.unmarshal(b))
}

func TestWireCodec_RejectsForeignTypes(t *testing.T) {
	_, err := wireCodec{}.Marshal("not a message")
	assert.Error(t, err)
	assert.Error(t, wireCodec{}.Unmarshal(nil, new(int)))
	assert.Equal(t, "proto", wireCodec{}.Name())
}
