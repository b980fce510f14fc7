package app

import (
	"fmt"
	"mime"

	"github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/protobuf/proto"
	"gopkg.in/yaml.v3"

	"github.com/toyz/kwargs/pkg/kwargs"
)

const (
	textMediaType   = "text/plain; charset=utf-8"
	binaryMediaType = "application/octet-stream"
)

// respond translates a handler's return value into a response
func respond(method string, result any) *kwargs.Response {
	var resp *kwargs.Response
	switch v := result.(type) {
	case *kwargs.Response:
		if v == nil {
			resp = &kwargs.Response{}
		} else {
			copied := *v
			resp = &copied
		}
	case kwargs.Response:
		resp = &v
	default:
		resp = &kwargs.Response{Body: result}
	}
	if resp.StatusCode == 0 {
		resp.StatusCode = kwargs.DefaultStatusCode(method)
	}
	if resp.MediaType == "" {
		resp.MediaType = mediaTypeOf(resp.Body)
	}
	return resp
}

func mediaTypeOf(body any) string {
	switch body.(type) {
	case nil:
		return ""
	case []byte:
		return binaryMediaType
	case string:
		return textMediaType
	}
	return kwargs.JSON.String()
}

// Encode renders the response body according to its media type and returns
// the bytes with the Content-Type to send. A nil body encodes to nothing.
func Encode(resp *kwargs.Response) ([]byte, string, error) {
	if resp.Body == nil {
		return nil, resp.MediaType, nil
	}
	mediaType := resp.MediaType
	if mediaType == "" {
		mediaType = mediaTypeOf(resp.Body)
	}
	switch v := resp.Body.(type) {
	case []byte:
		return v, mediaType, nil
	case string:
		return []byte(v), mediaType, nil
	}

	base, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		base = mediaType
	}
	enc, _ := kwargs.ParseRequestEncoding(base)

	var out []byte
	switch enc {
	case kwargs.MessagePack:
		out, err = msgpack.Marshal(resp.Body)
	case kwargs.YAML:
		out, err = yaml.Marshal(resp.Body)
	case kwargs.Protobuf:
		msg, ok := resp.Body.(proto.Message)
		if !ok {
			return nil, "", fmt.Errorf("response body %T is not a protobuf message", resp.Body)
		}
		out, err = proto.Marshal(msg)
	default:
		out, err = json.Marshal(resp.Body)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode %s response: %w", base, err)
	}
	return out, mediaType, nil
}
