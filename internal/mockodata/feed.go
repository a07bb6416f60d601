package mockodata

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	nsAtom     = "http://www.w3.org/2005/Atom"
	nsMetadata = "http://schemas.microsoft.com/ado/2007/08/dataservices/metadata"
	nsData     = "http://schemas.microsoft.com/ado/2007/08/dataservices"
)

func sortedKeys(rec map[string]string) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeAtomFeed(w http.ResponseWriter, set string, records []map[string]string) {
	w.Header().Set("Content-Type", "application/atom+xml;type=feed; charset=utf-8")
	fmt.Fprintf(w, `<?xml version="1.0" encoding="utf-8"?><feed xmlns="%s" xmlns:m="%s" xmlns:d="%s" xml:base="%s/"><id>%s</id><title type="text">%s</title>`,
		nsAtom, nsMetadata, nsData, ServicePath, set, set)

	for _, rec := range records {
		io.WriteString(w, `<entry><content type="application/xml"><m:properties>`)
		for _, k := range sortedKeys(rec) {
			v := rec[k]
			switch {
			case v == "":
				fmt.Fprintf(w, `<d:%s m:null="true"/>`, k)
			case dateFields[k]:
				fmt.Fprintf(w, `<d:%s m:type="Edm.DateTime">`, k)
				_ = xml.EscapeText(w, []byte(v))
				fmt.Fprintf(w, `</d:%s>`, k)
			default:
				fmt.Fprintf(w, `<d:%s>`, k)
				_ = xml.EscapeText(w, []byte(v))
				fmt.Fprintf(w, `</d:%s>`, k)
			}
		}
		io.WriteString(w, `</m:properties></content></entry>`)
	}
	io.WriteString(w, `</feed>`)
}

// jsonDate renders a fixture date the way the JSON format of SAP Gateway
// does: /Date(<epoch-millis>)/.
func jsonDate(v string) string {
	t, err := time.ParseInLocation(dateLayout, v, time.UTC)
	if err != nil {
		return v
	}
	return "/Date(" + strconv.FormatInt(t.UnixMilli(), 10) + ")/"
}

func writeJSONFeed(w http.ResponseWriter, set string, records []map[string]string) {
	results := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		item := map[string]any{
			"__metadata": map[string]string{
				"type": "ZSHOP_PORTAL_863_SRV." + strings.TrimSuffix(set, "Set"),
			},
		}
		for k, v := range rec {
			switch {
			case v == "":
				item[k] = nil
			case dateFields[k]:
				item[k] = jsonDate(v)
			default:
				item[k] = v
			}
		}
		results = append(results, item)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"d": map[string]any{"results": results},
	})
}
