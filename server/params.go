package server

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/bitsieve"
)

// Writer types accepted by the wt parameter.
const (
	WriterJSON    = "json"
	WriterMsgPack = "msgpack"
	WriterBitset  = "bitset"
)

// selectParams are the decoded query parameters of /select.
type selectParams struct {
	query       string
	fields      []string
	renames     map[string]string
	timeAllowed time.Duration
	writer      string
	order       bitsieve.Order
}

// parseFieldList parses "title,year:published,bitset". A name may be renamed
// with name:output. Duplicate names are dropped.
func parseFieldList(fl string) ([]string, map[string]string, error) {
	var (
		fields  []string
		renames map[string]string
		seen    = map[string]struct{}{}
	)
	for _, item := range strings.Split(fl, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, output, renamed := strings.Cut(item, ":")
		name, output = strings.TrimSpace(name), strings.TrimSpace(output)
		if name == "" || (renamed && output == "") {
			return nil, nil, fmt.Errorf("invalid field %q", item)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		fields = append(fields, name)
		if renamed && output != name {
			if renames == nil {
				renames = make(map[string]string)
			}
			renames[name] = output
		}
	}
	return fields, renames, nil
}

func parseSelectParams(get func(string) string) (selectParams, error) {
	p := selectParams{
		query:  strings.TrimSpace(get("q")),
		writer: WriterJSON,
	}

	var err error
	p.fields, p.renames, err = parseFieldList(get("fl"))
	if err != nil {
		return p, err
	}

	if v := get("timeAllowed"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil || ms < 0 {
			return p, fmt.Errorf("invalid timeAllowed %q", v)
		}
		p.timeAllowed = time.Duration(ms) * time.Millisecond
	}

	switch wt := get("wt"); wt {
	case "", WriterJSON:
	case WriterMsgPack, WriterBitset:
		p.writer = wt
	default:
		return p, fmt.Errorf("unknown wt %q", wt)
	}

	if p.writer == WriterBitset && !contains(p.fields, bitsieve.RowIDField) {
		p.fields = append(p.fields, bitsieve.RowIDField)
	}

	switch o := get("order"); o {
	case "", "index":
		p.order = bitsieve.OrderIndex
	case "reverse_segments":
		p.order = bitsieve.OrderReverseSegments
	default:
		return p, fmt.Errorf("unknown order %q", o)
	}
	return p, nil
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
