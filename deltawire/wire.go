// Package deltawire is the boundary between the delta algebra and the JSON
// shape used by the reference rich-text OT implementation. It owns every
// malformed-input error so the core package never has to.
//
// Grounded on the teacher's server/message.go Encode (marshal-to-bytes at
// the boundary, ignoring the impossible json.Marshal error) and on
// other_examples' xxuejie-go-delta-ot, which confirms the upstream
// go-quilljs-delta wire shape this package mirrors.
package deltawire

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/collabhq/deltacollab/delta"
)

// ErrMalformed is returned for any wire input deltawire cannot map onto
// the delta algebra's op shapes: bad JSON, an op object with none of
// retain/insert/delete set, or an attribute value that isn't a JSON
// string, number, bool, or null.
var ErrMalformed = errors.New("deltawire: malformed wire delta")

type wireOp struct {
	Retain     *int                   `json:"retain,omitempty"`
	Insert     interface{}            `json:"insert,omitempty"`
	Delete     *int                   `json:"delete,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

type wireDelta struct {
	Ops []wireOp `json:"ops"`
}

// Marshal renders d as the JSON shape pinned by the wire contract.
func Marshal(d delta.Delta) ([]byte, error) {
	ops := make([]wireOp, 0, len(d.Ops))
	for _, op := range d.Ops {
		wo, err := opToWire(op)
		if err != nil {
			return nil, err
		}
		ops = append(ops, wo)
	}
	b, err := json.Marshal(wireDelta{Ops: ops})
	if err != nil {
		return nil, errors.Wrap(err, "deltawire: marshal")
	}
	return b, nil
}

// Unmarshal parses the wire JSON shape into a Delta. Any op that does not
// fit one of the four wire shapes, or any attribute value outside
// string/number/bool/null, is reported as ErrMalformed.
func Unmarshal(b []byte) (delta.Delta, error) {
	var wd wireDelta
	if err := json.Unmarshal(b, &wd); err != nil {
		return delta.Delta{}, errors.Wrap(ErrMalformed, err.Error())
	}
	ops := make([]delta.Op, 0, len(wd.Ops))
	for _, wo := range wd.Ops {
		op, err := opFromWire(wo)
		if err != nil {
			return delta.Delta{}, err
		}
		ops = append(ops, op)
	}
	return delta.New(ops...), nil
}

func opToWire(op delta.Op) (wireOp, error) {
	attrs, err := attrsToWire(op.Attrs)
	if err != nil {
		return wireOp{}, err
	}
	switch op.Type {
	case delta.OpRetain:
		n := op.N
		return wireOp{Retain: &n, Attributes: attrs}, nil
	case delta.OpInsertText:
		return wireOp{Insert: op.Text, Attributes: attrs}, nil
	case delta.OpInsertCode:
		return wireOp{Insert: op.N, Attributes: attrs}, nil
	case delta.OpDelete:
		n := op.N
		return wireOp{Delete: &n}, nil
	default:
		return wireOp{}, errors.Wrapf(ErrMalformed, "unknown op type %s", op.Type)
	}
}

func opFromWire(wo wireOp) (delta.Op, error) {
	attrs, err := attrsFromWire(wo.Attributes)
	if err != nil {
		return delta.Op{}, err
	}
	switch {
	case wo.Retain != nil:
		return delta.Retain(*wo.Retain, attrs), nil
	case wo.Delete != nil:
		return delta.Delete(*wo.Delete), nil
	case wo.Insert != nil:
		switch v := wo.Insert.(type) {
		case string:
			return delta.InsertText(v, attrs), nil
		case float64:
			return delta.InsertCode(int(v), attrs), nil
		default:
			return delta.Op{}, errors.Wrapf(ErrMalformed, "insert value has unsupported type %T", v)
		}
	default:
		return delta.Op{}, errors.Wrap(ErrMalformed, "op has none of retain/insert/delete set")
	}
}

func attrsToWire(a delta.Attributes) (map[string]interface{}, error) {
	if len(a) == 0 {
		return nil, nil
	}
	out := make(map[string]interface{}, len(a))
	for k, v := range a {
		switch v.Kind() {
		case delta.KindNull:
			out[k] = nil
		case delta.KindString:
			out[k] = v.String()
		case delta.KindNumber:
			out[k] = v.Number()
		case delta.KindBoolean:
			out[k] = v.Boolean()
		default:
			return nil, errors.Wrapf(ErrMalformed, "attribute %q has unsupported kind", k)
		}
	}
	return out, nil
}

func attrsFromWire(m map[string]interface{}) (delta.Attributes, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(delta.Attributes, len(m))
	for k, v := range m {
		switch vv := v.(type) {
		case nil:
			out[k] = delta.NullValue()
		case string:
			out[k] = delta.StringValue(vv)
		case float64:
			out[k] = delta.NumberValue(vv)
		case bool:
			out[k] = delta.BooleanValue(vv)
		default:
			return nil, errors.Wrapf(ErrMalformed, "attribute %q has unsupported JSON type %T", k, vv)
		}
	}
	return out, nil
}
