// Package host supplies a default vm.Host: an in-process implementation of
// everything outside the VM's own arithmetic/control-flow/record domain
// (print output, outbound HTTP, the clock/UUID generator `@auto`
// fields call, and record storage). The teacher has no equivalent — DWScript
// is a closed interpreter with no host boundary — so this package is
// grounded in the rest of the corpus: tidwall/gjson and tidwall/sjson (in
// the teacher's go.mod as an indirect dependency of go-snaps, promoted here
// to direct use) back the record store, reading/patching JSON documents
// without a struct-mapping ORM, per SPEC_FULL.md's domain-stack wiring.
package host

import (
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/droe-lang/droe/internal/diagnostics"
	"github.com/droe-lang/droe/internal/vm"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// MemoryHost is the default host: `droe run` uses it when no embedder
// supplies a real database/HTTP adapter. (The VM's own tests use their
// own fakeHost instead.)
// Each data-declared entity is kept as a single JSON array document; rows
// are JSON objects encoding each field as {"t": <type name>, "v": <value>}
// so a row can be decoded back into a typed vm.Value without consulting
// the schema (the schema is only needed, at the vm package layer, to order
// fields positionally — see buildRecord in internal/vm).
type MemoryHost struct {
	mu     sync.Mutex
	tables map[string]string // entity name -> JSON array of row objects

	out    io.Writer
	client *http.Client
	log    *diagnostics.Logger
}

// NewMemoryHost returns a MemoryHost that writes `display` output to out
// and logs uncaught runtime errors through log (nil is fine — Fail becomes
// a no-op).
func NewMemoryHost(out io.Writer, log *diagnostics.Logger) *MemoryHost {
	return &MemoryHost{
		tables: make(map[string]string),
		out:    out,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log,
	}
}

func (h *MemoryHost) Print(text string)     { fmt.Fprint(h.out, text) }
func (h *MemoryHost) PrintLine(text string) { fmt.Fprintln(h.out, text) }

// Now returns the canonical "YYYY-MM-DD" form vm.Date values carry.
func (h *MemoryHost) Now() string { return time.Now().UTC().Format("2006-01-02") }

// UUID generates an RFC 4122 version-4 identifier for @auto key fields.
// No UUID library appears anywhere in the retrieved corpus, and
// crypto/rand plus manual version/variant bit-setting is the entire
// algorithm — there's no meaningful library surface to wrap.
func (h *MemoryHost) UUID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err) // crypto/rand.Read only fails if the OS entropy source is gone
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

func (h *MemoryHost) Fail(kind, message string, line int) {
	if h.log == nil {
		return
	}
	h.log.Error("%s", diagnostics.FromRuntime(kind, message, line))
}

// HTTPRequest serves an outbound `call` statement over a real HTTP client.
func (h *MemoryHost) HTTPRequest(req vm.HTTPRequest) (vm.HTTPResponse, error) {
	var body io.Reader
	if req.HasBody {
		body = strings.NewReader(req.Body.String())
	}
	httpReq, err := http.NewRequest(req.Method, req.URL, body)
	if err != nil {
		return vm.HTTPResponse{}, fmt.Errorf("build request: %w", err)
	}
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return vm.HTTPResponse{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return vm.HTTPResponse{}, fmt.Errorf("read response: %w", err)
	}
	return vm.HTTPResponse{Status: int64(resp.StatusCode), Body: string(data)}, nil
}

// DatabaseOp stores, queries, and mutates one JSON array document per
// entity. Where clauses are matched by decoding and comparing in Go rather
// than a gjson array query expression: a `where` clause can name several
// fields at once, which gjson's single-condition `#(...)` query syntax
// doesn't compose across.
func (h *MemoryHost) DatabaseOp(op vm.DBOp) (vm.DBResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch op.Code {
	case vm.DBOpCreate:
		row := encodeRow(op.With)
		raw, err := sjson.SetRaw(h.tableOr(op.Entity, "[]"), "-1", row)
		if err != nil {
			return vm.DBResult{}, fmt.Errorf("create %s: %w", op.Entity, err)
		}
		h.tables[op.Entity] = raw
		return vm.DBResult{Fields: op.With}, nil

	case vm.DBOpFind:
		idx, found := h.findIndex(op.Entity, op.Where)
		if !found {
			return vm.DBResult{Found: false}, nil
		}
		row := gjson.Parse(h.tableOr(op.Entity, "[]")).Array()[idx]
		return vm.DBResult{Found: true, Fields: decodeRow(row)}, nil

	case vm.DBOpFindAll:
		rows := gjson.Parse(h.tableOr(op.Entity, "[]")).Array()
		out := make([][]vm.Field, len(rows))
		for i, row := range rows {
			out[i] = decodeRow(row)
		}
		return vm.DBResult{Records: out}, nil

	case vm.DBOpUpdate:
		idx, found := h.findIndex(op.Entity, op.Where)
		if !found {
			return vm.DBResult{Found: false}, nil
		}
		raw := h.tableOr(op.Entity, "[]")
		existing := decodeRow(gjson.Parse(raw).Array()[idx])
		merged := mergeFields(existing, op.Set)
		row := encodeRow(merged)
		raw, err := sjson.SetRaw(raw, fmt.Sprintf("%d", idx), row)
		if err != nil {
			return vm.DBResult{}, fmt.Errorf("update %s: %w", op.Entity, err)
		}
		h.tables[op.Entity] = raw
		return vm.DBResult{Found: true, Fields: merged}, nil

	case vm.DBOpDelete:
		idx, found := h.findIndex(op.Entity, op.Where)
		if !found {
			return vm.DBResult{Affected: 0}, nil
		}
		raw, err := sjson.Delete(h.tableOr(op.Entity, "[]"), fmt.Sprintf("%d", idx))
		if err != nil {
			return vm.DBResult{}, fmt.Errorf("delete %s: %w", op.Entity, err)
		}
		h.tables[op.Entity] = raw
		return vm.DBResult{Affected: 1}, nil
	}
	return vm.DBResult{}, fmt.Errorf("unsupported database operation %v", op.Code)
}

func (h *MemoryHost) tableOr(entity, empty string) string {
	if raw, ok := h.tables[entity]; ok {
		return raw
	}
	return empty
}

func (h *MemoryHost) findIndex(entity string, where []vm.Field) (int, bool) {
	rows := gjson.Parse(h.tableOr(entity, "[]")).Array()
	for i, row := range rows {
		if rowMatches(row, where) {
			return i, true
		}
	}
	return 0, false
}

func rowMatches(row gjson.Result, where []vm.Field) bool {
	for _, w := range where {
		if !decodeField(row.Get(w.Name)).Equal(w.Value) {
			return false
		}
	}
	return true
}

func mergeFields(existing, set []vm.Field) []vm.Field {
	byName := make(map[string]vm.Value, len(existing))
	order := make([]string, 0, len(existing))
	for _, f := range existing {
		byName[f.Name] = f.Value
		order = append(order, f.Name)
	}
	for _, f := range set {
		if _, ok := byName[f.Name]; !ok {
			order = append(order, f.Name)
		}
		byName[f.Name] = f.Value
	}
	merged := make([]vm.Field, len(order))
	for i, name := range order {
		merged[i] = vm.Field{Name: name, Value: byName[name]}
	}
	return merged
}

// encodeRow builds one row object, each field wrapped with its value type
// so decodeField can reconstruct the exact vm.Value kind later.
func encodeRow(fields []vm.Field) string {
	raw := "{}"
	for _, f := range fields {
		raw, _ = sjson.SetRaw(raw, f.Name, encodeField(f.Value))
	}
	return raw
}

func encodeField(v vm.Value) string {
	raw := "{}"
	raw, _ = sjson.Set(raw, "t", v.Type.String())
	switch v.Type {
	case vm.ValueInt, vm.ValueDecimal:
		raw, _ = sjson.Set(raw, "v", v.Int)
	case vm.ValueFlag:
		raw, _ = sjson.Set(raw, "v", v.Flag)
	default: // text, date, file
		raw, _ = sjson.Set(raw, "v", v.String())
	}
	return raw
}

func decodeRow(row gjson.Result) []vm.Field {
	var fields []vm.Field
	row.ForEach(func(key, value gjson.Result) bool {
		fields = append(fields, vm.Field{Name: key.String(), Value: decodeField(value)})
		return true
	})
	return fields
}

func decodeField(r gjson.Result) vm.Value {
	switch r.Get("t").String() {
	case "int":
		return vm.IntValue(r.Get("v").Int())
	case "decimal":
		return vm.Decimal(r.Get("v").Int())
	case "flag":
		return vm.Flag(r.Get("v").Bool())
	case "date":
		return vm.Date(r.Get("v").String())
	case "file":
		return vm.File(r.Get("v").String())
	default:
		return vm.Text(r.Get("v").String())
	}
}
