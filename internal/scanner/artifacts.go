package scanner

import (
	"bufio"
	"encoding/json"
	"html/template"
	"os"
	"sort"

	"codedup/internal/models"
)

// writeJSONL writes n records as one JSON object per line.
func writeJSONL(path string, n int, record func(i int) any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := 0; i < n; i++ {
		if err := enc.Encode(record(i)); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func writeStats(path string, stats models.Stats) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Duplicate report: {{.Repo}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: left; }
th { background: #f0f0f0; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
code { background: #f5f5f5; padding: 1px 4px; }
</style>
</head>
<body>
<h1>Duplicate report: {{.Repo}}</h1>
<p>{{.Stats.FilesScanned}} files scanned, {{.Stats.ChunksExtracted}} chunks extracted,
{{len .Stats.TopDupGroups}} duplicate groups shown ({{printf "%.1f" .Stats.DurationSeconds}}s).</p>

<h2>Chunks by language</h2>
<table>
<tr><th>Language</th><th>Chunks</th></tr>
{{range .Languages}}<tr><td>{{.Name}}</td><td class="num">{{.Count}}</td></tr>
{{end}}</table>

<h2>Token estimate distribution</h2>
<table>
<tr><th>Bin</th><th>Chunks</th></tr>
{{range .Bins}}<tr><td>{{.Name}}</td><td class="num">{{.Count}}</td></tr>
{{end}}</table>

<h2>Largest exact-duplicate groups</h2>
<table>
<tr><th>#</th><th>Fingerprint</th><th>Copies</th><th>Sample chunk ids</th></tr>
{{range $i, $g := .Stats.TopDupGroups}}<tr>
<td class="num">{{inc $i}}</td>
<td><code>{{$g.Fingerprint}}</code></td>
<td class="num">{{$g.Count}}</td>
<td>{{range $j, $id := $g.ChunkIDs}}{{if lt $j 3}}{{if $j}}, {{end}}<code>{{$id}}</code>{{end}}{{end}}</td>
</tr>
{{end}}</table>
</body>
</html>
`))

type namedCount struct {
	Name  string
	Count int
}

type reportData struct {
	Repo      string
	Stats     models.Stats
	Languages []namedCount
	Bins      []namedCount
}

// writeReport renders a static HTML summary next to the JSON artifacts.
func writeReport(path, repo string, stats models.Stats) error {
	data := reportData{
		Repo:      repo,
		Stats:     stats,
		Languages: sortedCounts(stats.ByLanguage),
		Bins:      binCounts(stats.TokenBins),
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := reportTemplate.Execute(f, data); err != nil {
		return err
	}
	return f.Close()
}

func sortedCounts(m map[string]int) []namedCount {
	out := make([]namedCount, 0, len(m))
	for name, count := range m {
		out = append(out, namedCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// binCounts keeps the token bins in ascending size order.
func binCounts(bins map[string]int) []namedCount {
	order := []string{"<=50", "51-150", "151-400", "401-1000", ">1000"}
	out := make([]namedCount, 0, len(order))
	for _, name := range order {
		out = append(out, namedCount{Name: name, Count: bins[name]})
	}
	return out
}
