package httpclient

import (
	"bytes"
	"encoding/json"
	"io"
	"net/url"
	"strings"
)

// Payload is a request body together with its content type.
type Payload interface {
	ContentType() string
	Body() (io.Reader, error)
}

type jsonPayload struct {
	v interface{}
}

// JSON encodes v as application/json.
func JSON(v interface{}) Payload {
	return jsonPayload{v: v}
}

func (p jsonPayload) ContentType() string { return "application/json" }

func (p jsonPayload) Body() (io.Reader, error) {
	data, err := json.Marshal(p.v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

type formPayload struct {
	values url.Values
}

// Form encodes values as application/x-www-form-urlencoded.
func Form(values url.Values) Payload {
	return formPayload{values: values}
}

func (p formPayload) ContentType() string { return "application/x-www-form-urlencoded" }

func (p formPayload) Body() (io.Reader, error) {
	return strings.NewReader(p.values.Encode()), nil
}
