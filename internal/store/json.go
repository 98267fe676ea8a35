package store

import "encoding/json"

// String slices and opaque detail maps are persisted as JSON text columns.

func marshalStrings(values []string) string {
	if values == nil {
		values = []string{}
	}
	data, _ := json.Marshal(values)
	return string(data)
}

func unmarshalStrings(data string) []string {
	if data == "" {
		return []string{}
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil || values == nil {
		return []string{}
	}
	return values
}

func marshalDetails(details map[string]any) *string {
	if details == nil {
		return nil
	}
	data, err := json.Marshal(details)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}

func unmarshalDetails(data *string) map[string]any {
	if data == nil || *data == "" {
		return nil
	}
	var details map[string]any
	if err := json.Unmarshal([]byte(*data), &details); err != nil {
		return nil
	}
	return details
}
