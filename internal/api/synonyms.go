package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultWordsURL is the public Datamuse endpoint.
const DefaultWordsURL = "https://api.datamuse.com"

const maxWordResults = 10

// WordsClient looks up synonyms and definitions through a Datamuse-style
// word API.
type WordsClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewWordsClient creates a client for the given base URL, defaulting to the
// public endpoint.
func NewWordsClient(baseURL string) *WordsClient {
	if baseURL == "" {
		baseURL = DefaultWordsURL
	}
	return &WordsClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WordInfo is the lookup result for one word.
type WordInfo struct {
	Word        string   `json:"word"`
	Synonyms    []string `json:"synonyms"`
	Definitions []string `json:"definitions"`
}

type wordEntry struct {
	Word string   `json:"word"`
	Defs []string `json:"defs"`
}

// Lookup fetches synonyms and dictionary definitions for a word.
func (c *WordsClient) Lookup(ctx context.Context, word string) (WordInfo, error) {
	info := WordInfo{Word: word, Synonyms: []string{}, Definitions: []string{}}

	syns, err := c.query(ctx, url.Values{
		"rel_syn": {word},
		"max":     {fmt.Sprint(maxWordResults)},
	})
	if err != nil {
		return WordInfo{}, err
	}
	for _, e := range syns {
		info.Synonyms = append(info.Synonyms, e.Word)
	}

	defs, err := c.query(ctx, url.Values{
		"sp":  {word},
		"md":  {"d"},
		"max": {"1"},
	})
	if err != nil {
		return WordInfo{}, err
	}
	if len(defs) > 0 && strings.EqualFold(defs[0].Word, word) {
		for _, d := range defs[0].Defs {
			// Definitions arrive as "pos\tdefinition text".
			if _, text, found := strings.Cut(d, "\t"); found {
				info.Definitions = append(info.Definitions, text)
			} else {
				info.Definitions = append(info.Definitions, d)
			}
		}
	}
	return info, nil
}

func (c *WordsClient) query(ctx context.Context, params url.Values) ([]wordEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/words?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying word api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("word api returned status %d", resp.StatusCode)
	}

	var entries []wordEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding word api response: %w", err)
	}
	return entries, nil
}
