package kwargs

import (
	"bytes"
	"io"
)

// UploadFile is a file part of a multipart body
type UploadFile struct {
	Filename    string
	ContentType string
	Headers     map[string][]string
	Content     []byte
}

// Size returns the length of the file content
func (f *UploadFile) Size() int64 {
	return int64(len(f.Content))
}

// Open returns a reader over the file content
func (f *UploadFile) Open() io.Reader {
	return bytes.NewReader(f.Content)
}

// FormPart is one named part of a form body. Value is either a string or
// an *UploadFile.
type FormPart struct {
	Name  string
	Value any
}

// IsFile reports whether the part is a file upload
func (p FormPart) IsFile() bool {
	_, ok := p.Value.(*UploadFile)
	return ok
}

// Form is a parsed url-encoded or multipart body with parts in arrival order
type Form struct {
	Parts []FormPart
}

// Len returns the number of parts
func (f *Form) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Parts)
}

// Values returns all parts in arrival order
func (f *Form) Values() []any {
	if f == nil {
		return nil
	}
	out := make([]any, len(f.Parts))
	for i, p := range f.Parts {
		out[i] = p.Value
	}
	return out
}

// FirstFile returns the first file part
func (f *Form) FirstFile() (*UploadFile, bool) {
	if f == nil {
		return nil, false
	}
	for _, p := range f.Parts {
		if file, ok := p.Value.(*UploadFile); ok {
			return file, true
		}
	}
	return nil, false
}

// Mapping returns the name to value mapping. Repeated names collect their
// values in a slice.
func (f *Form) Mapping() map[string]any {
	out := make(map[string]any, f.Len())
	if f == nil {
		return out
	}
	for _, p := range f.Parts {
		existing, ok := out[p.Name]
		if !ok {
			out[p.Name] = p.Value
			continue
		}
		if list, isList := existing.([]any); isList {
			out[p.Name] = append(list, p.Value)
		} else {
			out[p.Name] = []any{existing, p.Value}
		}
	}
	return out
}
