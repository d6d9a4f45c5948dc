package export

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/beevik/etree"

	"github.com/pagelens/pagelens/internal/models"
)

// ToXML renders records as an XML document of the shape
// <data><item>…</item></data>, one item per record with one child element
// per field. Field names are sanitized into valid element names.
func ToXML(records []models.Record) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("data")
	for _, rec := range records {
		item := root.CreateElement("item")

		keys := make([]string, 0, len(rec))
		for key := range rec {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			appendValue(item, elementName(key), rec[key])
		}
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize xml: %w", err)
	}
	return out, nil
}

func appendValue(parent *etree.Element, name string, value any) {
	el := parent.CreateElement(name)
	switch val := value.(type) {
	case nil:
	case string:
		el.SetText(val)
	case bool:
		el.SetText(strconv.FormatBool(val))
	case float64:
		el.SetText(strconv.FormatFloat(val, 'f', -1, 64))
	case int:
		el.SetText(strconv.Itoa(val))
	case []string:
		for _, entry := range val {
			el.CreateElement("item").SetText(entry)
		}
	case []any:
		for _, entry := range val {
			appendValue(el, "item", entry)
		}
	case map[string]string:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			el.CreateElement(elementName(k)).SetText(val[k])
		}
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			appendValue(el, elementName(k), val[k])
		}
	default:
		// Typed composites (ImageMeta, ImageCell and slices of them) and
		// anything unforeseen round-trip through JSON into generic shapes.
		data, err := json.Marshal(val)
		if err != nil {
			return
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return
		}
		parent.RemoveChild(el)
		appendValue(parent, name, generic)
	}
}

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

// elementName coerces an arbitrary field key (table headers can be any
// text) into a valid XML element name.
func elementName(key string) string {
	name := invalidNameChars.ReplaceAllString(key, "_")
	if name == "" {
		return "field"
	}
	first := name[0]
	if !(first == '_' || (first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z')) {
		name = "_" + name
	}
	return name
}
