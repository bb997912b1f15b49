package subtitles

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	defaultBaseURL = "https://api.opensubtitles.com/api/v1"

	// The moviehash covers the first and last 64 KiB of the file.
	hashChunkSize = 65536
)

// Result is a single subtitle candidate returned by a search.
type Result struct {
	ID            string  `json:"id"`
	FileID        int64   `json:"file_id"`
	Language      string  `json:"language"`
	Release       string  `json:"release"`
	DownloadCount int     `json:"download_count"`
	Ratings       float64 `json:"ratings"`
	FileName      string  `json:"file_name"`
}

// Client talks to the OpenSubtitles REST API. All methods degrade
// gracefully: network or API failures return empty results rather
// than propagating, since subtitles are a best-effort feature.
type Client struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: defaultBaseURL,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// SearchByTitle searches subtitles by title, optional year, and language.
func (c *Client) SearchByTitle(title string, year int, language string) ([]Result, error) {
	params := url.Values{}
	params.Set("query", title)
	params.Set("languages", language)
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}
	return c.search(params)
}

// SearchByFile computes the moviehash of the given file and searches by it.
// Files too small to hash yield no results.
func (c *Client) SearchByFile(filePath, language string) ([]Result, error) {
	hash, err := ComputeHash(filePath)
	if err != nil {
		return nil, nil
	}
	params := url.Values{}
	params.Set("moviehash", hash)
	params.Set("languages", language)
	return c.search(params)
}

func (c *Client) search(params url.Values) ([]Result, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("opensubtitles api key not configured")
	}
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/subtitles?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("subtitle search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("subtitle search: status %d", resp.StatusCode)
	}

	var payload struct {
		Data []struct {
			ID         string `json:"id"`
			Attributes struct {
				Language      string  `json:"language"`
				Release       string  `json:"release"`
				DownloadCount int     `json:"download_count"`
				Ratings       float64 `json:"ratings"`
				Files         []struct {
					FileID   int64  `json:"file_id"`
					FileName string `json:"file_name"`
				} `json:"files"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("subtitle search: decode: %w", err)
	}

	results := make([]Result, 0, len(payload.Data))
	for _, item := range payload.Data {
		if len(item.Attributes.Files) == 0 {
			continue
		}
		f := item.Attributes.Files[0]
		results = append(results, Result{
			ID:            item.ID,
			FileID:        f.FileID,
			Language:      item.Attributes.Language,
			Release:       item.Attributes.Release,
			DownloadCount: item.Attributes.DownloadCount,
			Ratings:       item.Attributes.Ratings,
			FileName:      f.FileName,
		})
	}
	return results, nil
}

// Download fetches the subtitle file identified by fileID into saveDir
// and returns the saved path. If filename is empty the API-provided
// name is used.
func (c *Client) Download(fileID int64, saveDir, filename string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("opensubtitles api key not configured")
	}
	body, err := json.Marshal(map[string]int64{"file_id": fileID})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/download", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("subtitle download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("subtitle download: status %d", resp.StatusCode)
	}

	var payload struct {
		Link     string `json:"link"`
		FileName string `json:"file_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("subtitle download: decode: %w", err)
	}
	if payload.Link == "" {
		return "", fmt.Errorf("subtitle download: no link in response")
	}

	subResp, err := (&http.Client{Timeout: 30 * time.Second}).Get(payload.Link)
	if err != nil {
		return "", fmt.Errorf("subtitle download: fetch: %w", err)
	}
	defer subResp.Body.Close()
	if subResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("subtitle download: fetch status %d", subResp.StatusCode)
	}

	if filename == "" {
		filename = payload.FileName
	}
	if filename == "" {
		filename = fmt.Sprintf("%d.srt", fileID)
	}
	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		return "", err
	}
	savePath := filepath.Join(saveDir, filepath.Base(filename))
	out, err := os.Create(savePath)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, subResp.Body); err != nil {
		os.Remove(savePath)
		return "", err
	}
	return savePath, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ReelKeep v1")
	if c.apiKey != "" {
		req.Header.Set("Api-Key", c.apiKey)
	}
}

// ComputeHash returns the OpenSubtitles moviehash of a video file:
// the file size plus the little-endian uint64 sum of the first and
// last 64 KiB, truncated to 64 bits and hex encoded.
func ComputeHash(filePath string) (string, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return "", err
	}
	if info.Size() < hashChunkSize*2 {
		return "", fmt.Errorf("file too small to hash: %s", filePath)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hash := uint64(info.Size())
	sum, err := sumChunk(f)
	if err != nil {
		return "", err
	}
	hash += sum

	if _, err := f.Seek(-hashChunkSize, io.SeekEnd); err != nil {
		return "", err
	}
	sum, err = sumChunk(f)
	if err != nil {
		return "", err
	}
	hash += sum

	return fmt.Sprintf("%016x", hash), nil
}

func sumChunk(r io.Reader) (uint64, error) {
	var sum uint64
	buf := make([]byte, hashChunkSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	for i := 0; i < hashChunkSize; i += 8 {
		sum += binary.LittleEndian.Uint64(buf[i : i+8])
	}
	return sum, nil
}
