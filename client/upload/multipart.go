package upload

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/adamwoolhether/fetch/client"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Multipart streams a multipart/form-data body holding fields, in order,
// followed by the file at path under the form name field. The file is
// never read into memory; only the part framing is.
func Multipart(field, path string, fields ...client.Param) client.SourceFunc {
	return func(*client.Request) (*client.Payload, error) {
		mime, err := mimetype.DetectFile(path)
		if err != nil {
			return nil, fmt.Errorf("detecting content type: %w", err)
		}

		head, tail, contentType, err := framing(field, filepath.Base(path), mime.String(), fields)
		if err != nil {
			return nil, err
		}

		f, size, err := open(path)
		if err != nil {
			return nil, err
		}

		return &client.Payload{
			Reader: readCloser{
				Reader: io.MultiReader(bytes.NewReader(head), f, bytes.NewReader(tail)),
				Closer: f,
			},
			Size:        int64(len(head)) + size + int64(len(tail)),
			ContentType: contentType,
		}, nil
	}
}

// framing renders everything before and after the file content.
func framing(field, filename, fileType string, fields []client.Param) ([]byte, []byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, p := range fields {
		if err := mw.WriteField(p.Key, p.Value); err != nil {
			return nil, nil, "", fmt.Errorf("writing field %s: %w", p.Key, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(filename)))
	h.Set("Content-Type", fileType)
	if _, err := mw.CreatePart(h); err != nil {
		return nil, nil, "", fmt.Errorf("writing file part header: %w", err)
	}

	headLen := buf.Len()
	if err := mw.Close(); err != nil {
		return nil, nil, "", fmt.Errorf("closing multipart body: %w", err)
	}

	all := buf.Bytes()
	return all[:headLen:headLen], all[headLen:], mw.FormDataContentType(), nil
}
