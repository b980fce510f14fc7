package extract

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"

	"github.com/toyz/kwargs/pkg/kwargs"
)

// ParseMultipart parses a buffered multipart body, failing as soon as more
// than limit parts are seen
func ParseMultipart(body []byte, boundary string, limit int) (*kwargs.Form, error) {
	if boundary == "" {
		return nil, &BodyDecodeError{MediaType: kwargs.MultiPart, Err: errors.New("missing boundary")}
	}
	reader := multipart.NewReader(bytes.NewReader(body), boundary)
	form := &kwargs.Form{}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			return nil, &BodyDecodeError{MediaType: kwargs.MultiPart, Err: err}
		}
		if len(form.Parts) >= limit {
			part.Close()
			return nil, &TooManyPartsError{Limit: limit}
		}
		content, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, &BodyDecodeError{MediaType: kwargs.MultiPart, Err: err}
		}

		name := part.FormName()
		if filename := part.FileName(); filename != "" {
			form.Parts = append(form.Parts, kwargs.FormPart{Name: name, Value: &kwargs.UploadFile{
				Filename:    filename,
				ContentType: part.Header.Get("Content-Type"),
				Headers:     map[string][]string(part.Header),
				Content:     content,
			}})
			continue
		}
		form.Parts = append(form.Parts, kwargs.FormPart{Name: name, Value: string(content)})
	}
}
