package vin

import (
	"fmt"
	"strconv"

	"google.golang.org/protobuf/encoding/protowire"
)

// The FuseVin messages are small enough to encode by hand; this keeps the
// client free of generated code.
//
//	message Empty {}
//	message Puppet { <id> id = 1; string vin_filename = 2; }
//	message StartStdinNotifyRequest { <id> id = 1; }
//	message StdinContent { <id> id = 1; bytes payload = 2; }
//	message DestroyPuppetRequest { <id> id = 1; }
//
// Deployments disagree on whether id is an integer or a string, so it is
// decoded from either wire type and re-encoded the way it arrived.

type message interface {
	marshal() []byte
	unmarshal(b []byte) error
}

// puppetID is an id in whichever form the service handed it out.
type puppetID struct {
	text    string
	numeric bool
}

func (id puppetID) append(b []byte, num protowire.Number) []byte {
	if id.numeric {
		n, err := strconv.ParseUint(id.text, 10, 64)
		if err == nil {
			b = protowire.AppendTag(b, num, protowire.VarintType)
			return protowire.AppendVarint(b, n)
		}
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, id.text)
}

func (id *puppetID) set(typ protowire.Type, raw []byte, v uint64) error {
	switch typ {
	case protowire.VarintType:
		id.text = strconv.FormatUint(v, 10)
		id.numeric = true
	case protowire.BytesType:
		id.text = string(raw)
		id.numeric = false
	default:
		return fmt.Errorf("id: unexpected wire type %d", typ)
	}
	return nil
}

type emptyMsg struct{}

func (*emptyMsg) marshal() []byte { return nil }

func (*emptyMsg) unmarshal(b []byte) error {
	return walkFields(b, func(protowire.Number, protowire.Type, []byte, uint64) error { return nil })
}

type puppetMsg struct {
	id          puppetID
	vinFilename string
}

func (m *puppetMsg) marshal() []byte {
	b := m.id.append(nil, 1)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	return protowire.AppendString(b, m.vinFilename)
}

func (m *puppetMsg) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, raw []byte, v uint64) error {
		switch num {
		case 1:
			return m.id.set(typ, raw, v)
		case 2:
			if typ != protowire.BytesType {
				return fmt.Errorf("vin_filename: unexpected wire type %d", typ)
			}
			m.vinFilename = string(raw)
		}
		return nil
	})
}

// idRequest is both StartStdinNotifyRequest and DestroyPuppetRequest.
type idRequest struct {
	id puppetID
}

func (m *idRequest) marshal() []byte { return m.id.append(nil, 1) }

func (m *idRequest) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, raw []byte, v uint64) error {
		if num == 1 {
			return m.id.set(typ, raw, v)
		}
		return nil
	})
}

type stdinContentMsg struct {
	id      puppetID
	payload []byte
}

func (m *stdinContentMsg) marshal() []byte {
	b := m.id.append(nil, 1)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	return protowire.AppendBytes(b, m.payload)
}

func (m *stdinContentMsg) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, raw []byte, v uint64) error {
		switch num {
		case 1:
			return m.id.set(typ, raw, v)
		case 2:
			if typ != protowire.BytesType {
				return fmt.Errorf("payload: unexpected wire type %d", typ)
			}
			m.payload = append([]byte(nil), raw...)
		}
		return nil
	})
}

// walkFields calls fn for every top-level field in b. raw is set for
// length-delimited fields, v for varints; other wire types are skipped.
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, raw []byte, v uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if err := fn(num, typ, nil, v); err != nil {
				return err
			}
			b = b[n:]
		case protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if err := fn(num, typ, raw, 0); err != nil {
				return err
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

// wireCodec lets grpc carry the hand-encoded messages. It reports itself
// as "proto" so the content type matches what protobuf servers expect.
type wireCodec struct{}

func (wireCodec) Name() string { return "proto" }

func (wireCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(message)
	if !ok {
		return nil, fmt.Errorf("vin codec: cannot marshal %T", v)
	}
	return m.marshal(), nil
}

func (wireCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(message)
	if !ok {
		return fmt.Errorf("vin codec: cannot unmarshal into %T", v)
	}
	return m.unmarshal(data)
}
