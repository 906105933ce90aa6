package api

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
)

const maxBodyBytes = 1 << 20

// readFields flattens a JSON object or an urlencoded form into string values.
// Missing keys and JSON nulls read as empty strings.
func readFields(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, &StatusError{Status: http.StatusBadRequest, Message: "unable to parse body"}
		}
		fields := make(map[string]string, len(raw))
		for key, value := range raw {
			fields[key] = stringify(value)
		}
		return fields, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, &StatusError{Status: http.StatusBadRequest, Message: "unable to parse body"}
	}
	fields := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		fields[key] = r.PostForm.Get(key)
	}
	return fields, nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}
