package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"nexusbridge/internal/archive"
	"nexusbridge/internal/descriptor"
	"nexusbridge/internal/domain"
	"nexusbridge/internal/download"
	"nexusbridge/internal/nexusapi"
)

// collectionSlugPattern matches the slug segment of a Nexus Mods collection
// page URL, e.g. https://next.nexusmods.com/skyrimspecialedition/collections/abc123.
var collectionSlugPattern = regexp.MustCompile(`/collections/([a-zA-Z0-9]+)`)

// resolveCollection turns a CLI argument — a nexusmods.com collection URL, a
// bare slug, or a local collection.json path — into parsed collection data,
// the slug used for history/archival naming, and the descriptor's raw bytes
// (so the caller can archive the exact revision installed).
func resolveCollection(ctx context.Context, api *nexusapi.Client, extractor *archive.Extractor, arg string) (*domain.Collection, string, []byte, error) {
	if data, err := os.ReadFile(arg); err == nil {
		col, parseErr := descriptor.Parse(data)
		if parseErr != nil {
			return nil, "", nil, parseErr
		}
		return col, slugFromLocalPath(arg), data, nil
	}

	slug := arg
	if m := collectionSlugPattern.FindStringSubmatch(arg); m != nil {
		slug = m[1]
	}

	revision, err := api.GetLatestCollectionRevision(ctx, slug)
	if err != nil {
		return nil, "", nil, fmt.Errorf("resolving collection %q: %w", slug, err)
	}
	if revision.DownloadLink == "" {
		return nil, "", nil, fmt.Errorf("collection %q has no published revision", slug)
	}

	data, err := fetchCollectionDescriptor(ctx, extractor, revision.DownloadLink, slug)
	if err != nil {
		return nil, "", nil, err
	}

	col, err := descriptor.Parse(data)
	if err != nil {
		return nil, "", nil, err
	}
	return col, slug, data, nil
}

// cdnLinksResponse is the body of the collection revision's downloadLink
// endpoint: a JSON object naming the CDN-hosted .7z archive, distinct from
// the per-mod download_link.json array shape GetDownloadLinks parses.
type cdnLinksResponse struct {
	DownloadLinks []nexusapi.DownloadLink `json:"download_links"`
}

// fetchCollectionDescriptor follows the revision's downloadLink to a CDN
// archive, downloads it, and extracts collection.json from it: the
// downloadLink endpoint never returns the descriptor directly, only a JSON
// pointer to a .7z archive that contains it (nexus_bridge.cpp's
// fetchCollectionFromNexus).
func fetchCollectionDescriptor(ctx context.Context, extractor *archive.Extractor, downloadLink, slug string) ([]byte, error) {
	fullURL := downloadLink
	if strings.HasPrefix(downloadLink, "/") {
		fullURL = "https://api.nexusmods.com" + downloadLink
	}

	linksJSON, err := fetchURL(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("fetching collection download links: %w", err)
	}

	var links cdnLinksResponse
	if err := json.Unmarshal(linksJSON, &links); err != nil {
		return nil, fmt.Errorf("parsing collection download links: %w", err)
	}
	if len(links.DownloadLinks) == 0 || links.DownloadLinks[0].URI == "" {
		return nil, fmt.Errorf("no CDN link in collection download response")
	}
	cdnURL := links.DownloadLinks[0].URI

	workDir, err := os.MkdirTemp("", "nxbridge-collection-"+slug)
	if err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	archivePath := filepath.Join(workDir, "collection.7z")
	dl := download.NewDownloader(nil)
	if _, err := dl.Download(ctx, cdnURL, archivePath, nil); err != nil {
		return nil, fmt.Errorf("downloading collection archive: %w", err)
	}

	extractDir := filepath.Join(workDir, "extracted")
	if err := extractor.Extract(ctx, archivePath, extractDir); err != nil {
		return nil, fmt.Errorf("extracting collection archive: %w", err)
	}

	descriptorPath, err := findCollectionJSON(extractDir)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(descriptorPath)
}

// findCollectionJSON locates collection.json anywhere under root, matching
// case-insensitively since archive tooling doesn't normalize case.
func findCollectionJSON(root string) (string, error) {
	var found string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || found != "" {
			return nil //nolint:nilerr
		}
		if strings.EqualFold(info.Name(), "collection.json") {
			found = path
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("searching extracted archive: %w", err)
	}
	if found == "" {
		return "", fmt.Errorf("collection.json not found in extracted archive")
	}
	return found, nil
}

func fetchURL(ctx context.Context, rawURL string) ([]byte, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func slugFromLocalPath(path string) string {
	base := path
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	return strings.TrimSuffix(base, ".json")
}

// querySummary is the --query dry-run payload described in spec §6: what
// would be installed, and its size, without downloading or installing
// anything.
type querySummary struct {
	CollectionName string
	GameDomain     string
	TotalMods      int
	ToDownload     int
	AlreadyHave    int
	Skipped        int
	DownloadBytes  int64
	InstallBytes   int64
	Queue          []queueItem
	Premium        bool
}

type queueItem struct {
	ModID    int
	FileID   int
	Bytes    int64
	ModName  string
}

// buildQuerySummary runs §4.1's parse (already done by the caller) plus the
// size calculation: it scans mo2Path's downloads directory the same way the
// real install would, so TO_DOWNLOAD/ALREADY_HAVE/SKIPPED and the byte
// totals reflect what a real run would actually have to fetch.
func buildQuerySummary(col *domain.Collection, mo2Path string, premium bool) (*querySummary, error) {
	downloadsDir := filepath.Join(mo2Path, "downloads")
	scan, err := download.Scan(col.Mods, downloadsDir)
	if err != nil {
		return nil, fmt.Errorf("scanning downloads directory: %w", err)
	}

	s := &querySummary{
		CollectionName: col.Name,
		GameDomain:     col.GameDomain,
		TotalMods:      len(col.Mods),
		ToDownload:     len(scan.Tasks),
		AlreadyHave:    len(scan.ArchivePaths),
		Skipped:        scan.Skipped,
		Premium:        premium,
	}

	for _, t := range scan.Tasks {
		s.DownloadBytes += t.FileSize
		s.Queue = append(s.Queue, queueItem{ModID: t.ModID, FileID: t.FileID, Bytes: t.FileSize, ModName: t.ModName})
	}
	// The extracted install size isn't knowable before downloading, so the
	// full collection's archive size is used as the install-size estimate —
	// the closest figure available from parse-time data alone.
	for _, m := range col.Mods {
		s.InstallBytes += m.FileSize
	}

	return s, nil
}

// printQuerySummary prints the machine-readable block spec §6 mandates.
func printQuerySummary(s *querySummary) {
	fmt.Printf("COLLECTION_NAME: %s\n", s.CollectionName)
	fmt.Printf("GAME: %s\n", s.GameDomain)
	fmt.Printf("TOTAL_MODS: %d\n", s.TotalMods)
	fmt.Printf("TO_DOWNLOAD: %d\n", s.ToDownload)
	fmt.Printf("ALREADY_HAVE: %d\n", s.AlreadyHave)
	fmt.Printf("SKIPPED: %d\n", s.Skipped)
	fmt.Printf("DOWNLOAD_BYTES: %d\n", s.DownloadBytes)
	fmt.Printf("INSTALL_BYTES: %d\n", s.InstallBytes)
	for _, q := range s.Queue {
		fmt.Printf("QUEUE_ITEM:%d:%d:%d:%s\n", q.ModID, q.FileID, q.Bytes, q.ModName)
	}
	premium := "No"
	if s.Premium {
		premium = "Yes"
	}
	fmt.Printf("Premium: %s\n", premium)
}

// nxmLink is a parsed nxm://<game>/mods/<modId>/files/<fileId>?key=...&expires=...
// link, the manual non-premium download handoff named in spec §6.
type nxmLink struct {
	Game    string
	ModID   int
	FileID  int
	Key     string
	Expires int64
}

var nxmPattern = regexp.MustCompile(`^nxm://([^/]+)/mods/(\d+)/files/(\d+)`)

func parseNXMLink(raw string) (*nxmLink, error) {
	m := nxmPattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, fmt.Errorf("not a valid nxm:// link: %q", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing nxm link: %w", err)
	}
	modID, _ := strconv.Atoi(m[2])
	fileID, _ := strconv.Atoi(m[3])
	expires, _ := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	return &nxmLink{
		Game:    m[1],
		ModID:   modID,
		FileID:  fileID,
		Key:     u.Query().Get("key"),
		Expires: expires,
	}, nil
}

// resolveNXM satisfies one queued download manually: it resolves the nxm
// link's one-time key to a CDN URI and downloads the archive directly into
// downloadsDir, using the same naming convention the coordinator's normal
// Nexus-sourced downloads use so the subsequent scan finds it already
// present.
func resolveNXM(ctx context.Context, api *nexusapi.Client, col *domain.Collection, downloadsDir, rawLink string) error {
	link, err := parseNXMLink(rawLink)
	if err != nil {
		return err
	}

	var mod *domain.Mod
	for i := range col.Mods {
		if col.Mods[i].ModID == link.ModID && col.Mods[i].FileID == link.FileID {
			mod = &col.Mods[i]
			break
		}
	}
	if mod == nil {
		return fmt.Errorf("nxm link refers to mod/file %d/%d, not found in this collection", link.ModID, link.FileID)
	}

	links, err := api.GetDownloadLinksWithKey(ctx, link.ModID, link.FileID, link.Key, link.Expires)
	if err != nil {
		return fmt.Errorf("resolving nxm link: %w", err)
	}
	if len(links) == 0 {
		return fmt.Errorf("nxm link did not resolve to a CDN download link (it may have expired)")
	}

	filename := download.SanitizeDownloadName(fmt.Sprintf("%s-%d-%d.7z", mod.Name, mod.ModID, mod.FileID))
	destPath := filepath.Join(downloadsDir, filename)

	dl := download.NewDownloader(nil)
	if _, err := dl.Download(ctx, links[0].URI, destPath, nil); err != nil {
		return fmt.Errorf("downloading via nxm link: %w", err)
	}
	fmt.Printf("Downloaded %s via manual nxm:// link.\n", mod.Name)
	return nil
}
