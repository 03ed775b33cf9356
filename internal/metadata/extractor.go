// Package metadata infers bibliographic metadata from raw page text.
//
// Everything here is heuristic and best-effort: a field the heuristics cannot
// find is returned empty, never as an error. Extraction is a pure function of
// its input text, so running it twice yields identical results.
package metadata

import (
	"regexp"
	"strings"

	"github.com/papergraph/papergraph/internal/models"
)

// FirstPagesForMetadata is how many leading pages are scanned for
// author/abstract/tag inference. Bibliographic headers live up front.
const FirstPagesForMetadata = 2

// abstractMaxLen caps the abstract span when no end marker follows the header.
const abstractMaxLen = 2000

// maxAuthorLineLen drops lines that are almost certainly titles, not bylines.
const maxAuthorLineLen = 80

// institutionalKeywords disqualify a line from author inference. Matched
// case-insensitively as substrings.
var institutionalKeywords = []string{
	"universidad", "university", "instituto", "institute",
	"departamento", "department", "facultad", "faculty",
	"school", "college", "journal", "revista", "editorial",
	"laboratorio", "laboratory", "centro", "center",
	"vol.", "issn", "doi", "http", "www", "@",
}

// properNameRe matches runs of 2-4 consecutive capitalized words, the shape
// of a byline name. Covers accented initials common in Spanish names.
var properNameRe = regexp.MustCompile(`\p{Lu}[\p{Ll}'’.-]+(?:\s+\p{Lu}[\p{Ll}'’.-]+){1,3}`)

var (
	doiRe   = regexp.MustCompile(`10\.\d{4,9}/[-._;()/:a-zA-Z0-9]+`)
	// No word boundaries: PDF creation dates look like D:20200114120000.
	yearRe  = regexp.MustCompile(`(19|20)\d{2}`)
	orcidRe = regexp.MustCompile(`\d{4}-\d{4}-\d{4}-\d{3}[\dX]`)
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	issnRe  = regexp.MustCompile(`(?i)ISSN[:\s]*(\d{4}-\d{3}[\dX])`)
)

var abstractHeaders = []string{"resumen", "abstract", "summary"}

var abstractEndMarkers = []string{"palabras clave", "keywords"}

// sectionTable maps lowercase header substrings to section labels, in match
// priority order. First matching key wins.
var sectionTable = []struct {
	key   string
	label string
}{
	{"palabras clave", "Palabras clave"},
	{"keywords", "Palabras clave"},
	{"resumen", "Resumen"},
	{"abstract", "Resumen"},
	{"introducción", "Introducción"},
	{"introduction", "Introducción"},
	{"metodología", "Metodología"},
	{"methodology", "Metodología"},
	{"methods", "Metodología"},
	{"resultados", "Resultados"},
	{"results", "Resultados"},
	{"discusión", "Discusión"},
	{"discussion", "Discusión"},
	{"conclusiones", "Conclusiones"},
	{"conclusion", "Conclusiones"},
}

// DefaultSection labels chunks that match no known section header.
const DefaultSection = "Texto general"

// tagVocabulary maps topical tags to the lowercase patterns that signal them
// in title+abstract. Short acronyms use word boundaries so "storage" does not
// match "rag".
var tagVocabulary = []struct {
	tag      string
	patterns []*regexp.Regexp
}{
	{"AI", compileAll(`artificial intelligence`, `inteligencia artificial`, `\bai\b`)},
	{"machine-learning", compileAll(`machine learning`, `aprendizaje automático`)},
	{"deep-learning", compileAll(`deep learning`, `aprendizaje profundo`)},
	{"NLP", compileAll(`natural language processing`, `procesamiento de lenguaje natural`, `\bnlp\b`)},
	{"RAG", compileAll(`retrieval.augmented`, `\brag\b`)},
	{"literature-review", compileAll(`literature review`, `systematic review`, `revisión de literatura`)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(p)
	}
	return res
}

// DefaultTag is emitted when no vocabulary tag matches but the document has a
// title or abstract to tag at all.
const DefaultTag = "general-paper"

// Extract infers DocumentMetadata from the first pages of a document and the
// raw container metadata. source is the doc_id; it is the only field that is
// always set.
func Extract(source string, firstPages []models.Page, info models.RawDocumentInfo) models.DocumentMetadata {
	var text strings.Builder
	for i, p := range firstPages {
		if i >= FirstPagesForMetadata {
			break
		}
		text.WriteString(p.Text)
		text.WriteByte('\n')
	}
	combined := text.String()
	firstPage := ""
	if len(firstPages) > 0 {
		firstPage = firstPages[0].Text
	}

	meta := models.DocumentMetadata{Source: source}
	meta.Title = inferTitle(firstPage, info)
	meta.AuthorReal = InferAuthors(combined)
	if meta.AuthorReal == "" {
		// Heuristics found nothing; fall back to the container's author field.
		meta.AuthorReal = strings.TrimSpace(info.Author)
	}
	meta.DOI = firstMatch(doiRe, firstPage)
	meta.Year = inferYear(info.CreationDate, firstPage)
	meta.ORCIDs = dedupe(orcidRe.FindAllString(combined, -1))
	meta.Emails = dedupe(emailRe.FindAllString(combined, -1))
	if m := issnRe.FindStringSubmatch(combined); len(m) > 1 {
		meta.ISSN = m[1]
	}
	meta.Abstract = InferAbstract(combined)
	meta.Tags = InferTags(meta.Title, meta.Abstract)
	return meta
}

// InferAuthors scans text line by line for byline-shaped names: lines short
// enough to not be titles, free of institutional keywords, containing runs of
// 2-4 capitalized words. Candidates are de-duplicated preserving first-seen
// order and joined with ", ". Returns "" when nothing plausible is found.
func InferAuthors(text string) string {
	var candidates []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) > maxAuthorLineLen {
			continue
		}
		if containsInstitutionalKeyword(line) {
			continue
		}
		for _, name := range properNameRe.FindAllString(line, -1) {
			if !seen[name] {
				seen[name] = true
				candidates = append(candidates, name)
			}
		}
	}
	return strings.Join(candidates, ", ")
}

func containsInstitutionalKeyword(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range institutionalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// inferYear returns the first 19xx/20xx match, checking the creation-date
// string before page text. When several years appear only the first one is
// taken; no attempt is made to pick a "best" year.
func inferYear(creationDate, firstPage string) string {
	if y := yearRe.FindString(creationDate); y != "" {
		return y
	}
	return yearRe.FindString(firstPage)
}

// InferAbstract locates the abstract span: it starts right after the first
// abstract header and ends at the first later keywords marker, or after
// abstractMaxLen characters when no marker follows.
func InferAbstract(text string) string {
	lower := strings.ToLower(text)
	headerAt, start := -1, -1
	for _, h := range abstractHeaders {
		if idx := strings.Index(lower, h); idx >= 0 && (headerAt == -1 || idx < headerAt) {
			headerAt = idx
			start = idx + len(h)
		}
	}
	if start == -1 {
		return ""
	}
	end := len(text)
	for _, marker := range abstractEndMarkers {
		if idx := strings.Index(lower[start:], marker); idx >= 0 && start+idx < end {
			end = start + idx
		}
	}
	if end-start > abstractMaxLen {
		end = start + abstractMaxLen
	}
	return strings.TrimSpace(strings.Trim(text[start:end], ":.- \n\t"))
}

// SectionLabel classifies chunk text by case-insensitive substring match
// against the section header table. First matching key wins.
func SectionLabel(chunkText string) string {
	lower := strings.ToLower(chunkText)
	for _, entry := range sectionTable {
		if strings.Contains(lower, entry.key) {
			return entry.label
		}
	}
	return DefaultSection
}

// InferTags matches the topical vocabulary against title+abstract. When no
// tag matches but either field is non-empty, the default tag is emitted.
func InferTags(title, abstract string) []string {
	haystack := strings.ToLower(title + " " + abstract)
	var tags []string
	for _, entry := range tagVocabulary {
		for _, p := range entry.patterns {
			if p.MatchString(haystack) {
				tags = append(tags, entry.tag)
				break
			}
		}
	}
	if len(tags) == 0 && strings.TrimSpace(title+abstract) != "" {
		tags = []string{DefaultTag}
	}
	return tags
}

// inferTitle prefers the container's title; otherwise the first non-empty
// line of the first page that is not obviously a running header.
func inferTitle(firstPage string, info models.RawDocumentInfo) string {
	if t := strings.TrimSpace(info.Title); t != "" {
		return t
	}
	for _, line := range strings.Split(firstPage, "\n") {
		line = strings.TrimSpace(line)
		if len(line) >= 10 && len(line) <= 200 {
			return line
		}
	}
	return ""
}

func firstMatch(re *regexp.Regexp, text string) string {
	return re.FindString(text)
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
