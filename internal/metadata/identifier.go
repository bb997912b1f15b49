package metadata

import (
	"log"
	"path/filepath"

	"github.com/reelkeep/reelkeep/internal/media"
	"github.com/reelkeep/reelkeep/internal/models"
	"github.com/reelkeep/reelkeep/internal/scanner"
)

// Provider is the external metadata source the identifier consults. Search
// calls return the provider's top-ranked hit or nil on no match; detail
// calls return the full record. Implementations may fail with errors; the
// identifier downgrades every provider error to a miss.
type Provider interface {
	SearchMovie(title string, year int) (*SearchResult, error)
	SearchTV(title string, year int) (*SearchResult, error)
	MovieDetails(id int64) (*models.Metadata, error)
	TVDetails(id int64) (*models.Metadata, error)
}

// Identifier classifies unidentified catalog entries against the provider.
// It processes one video at a time and commits each outcome independently,
// so a failure partway through a pass leaves earlier results intact.
type Identifier struct {
	provider  Provider
	videoRepo *media.Repository
	metaRepo  *media.MetadataRepository
}

func NewIdentifier(provider Provider, videoRepo *media.Repository, metaRepo *media.MetadataRepository) *Identifier {
	return &Identifier{provider: provider, videoRepo: videoRepo, metaRepo: metaRepo}
}

// IdentifyAll runs the identification pipeline over every video lacking a
// provider linkage. Re-running is safe: linked videos are excluded up front.
// Videos that previously fell back to a hint-derived category have no
// linkage and are retried on every pass; retries are never suppressed.
// Returns the number of videos that gained a provider linkage.
func (i *Identifier) IdentifyAll() (int, error) {
	pending, err := i.videoRepo.ListUnidentified()
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	log.Printf("Identify: %d videos pending", len(pending))
	identified := 0
	for _, v := range pending {
		if i.identifyOne(&v) {
			identified++
		}
	}
	return identified, nil
}

// identifyOne classifies a single entry. Persistence errors abort only this
// entry's commit; the pass continues with the next entry.
func (i *Identifier) identifyOne(v *media.UnidentifiedVideo) bool {
	parsed := scanner.ParseFilename(filepath.Base(v.FilePath))

	// Personal folders never consult the provider.
	if v.FolderType == models.FolderTypePersonal {
		if err := i.videoRepo.UpdateFallback(v.ID, parsed.Title, models.CategoryPersonal); err != nil {
			log.Printf("Identify: update failed for %s: %v", v.FilePath, err)
		}
		return false
	}

	result, mediaType := i.lookup(v.FolderType, parsed)
	if result == nil {
		category := v.FolderType.FallbackCategory()
		if err := i.videoRepo.UpdateFallback(v.ID, parsed.Title, category); err != nil {
			log.Printf("Identify: fallback update failed for %s: %v", v.FilePath, err)
		}
		return false
	}

	category := models.CategoryMovie
	if mediaType == models.MediaTypeTV {
		category = models.CategoryTVShow
	}

	// Fetch and cache the full record; a failed detail fetch still links
	// the video, falling back to the parsed title for display.
	displayTitle := parsed.Title
	meta := i.fetchDetails(result.ID, mediaType)
	if meta != nil {
		if err := i.metaRepo.Upsert(meta); err != nil {
			log.Printf("Identify: metadata upsert failed for tmdb %d: %v", result.ID, err)
		}
		displayTitle = meta.Title
	}

	var showName *string
	var season, episode *int
	if category == models.CategoryTVShow {
		showName = &displayTitle
		if parsed.Season > 0 {
			s := parsed.Season
			season = &s
		}
		if parsed.Episode > 0 {
			e := parsed.Episode
			episode = &e
		}
	}

	if err := i.videoRepo.UpdateIdentified(v.ID, result.ID, category, displayTitle,
		showName, season, episode); err != nil {
		log.Printf("Identify: update failed for %s: %v", v.FilePath, err)
		return false
	}
	log.Printf("Identify: %s → %s %q (tmdb %d)", filepath.Base(v.FilePath), category, displayTitle, result.ID)
	return true
}

// lookup runs the hint-ordered provider search. TV-hinted folders (and
// filenames carrying an episode marker) search TV first and do not fall back
// to movie; everything else searches movie first and falls back to TV.
func (i *Identifier) lookup(hint models.FolderType, parsed scanner.ParsedFilename) (*SearchResult, models.MediaType) {
	tvFirst := hint == models.FolderTypeTVShows || parsed.IsTV

	if tvFirst {
		if r := i.searchTV(parsed); r != nil {
			return r, models.MediaTypeTV
		}
		// The attempt was already a TV search; no fallback.
		return nil, ""
	}

	if r := i.searchMovie(parsed); r != nil {
		return r, models.MediaTypeMovie
	}
	if r := i.searchTV(parsed); r != nil {
		return r, models.MediaTypeTV
	}
	return nil, ""
}

func (i *Identifier) searchMovie(parsed scanner.ParsedFilename) *SearchResult {
	r, err := i.provider.SearchMovie(parsed.Title, parsed.Year)
	if err != nil {
		log.Printf("Identify: movie search miss for %q: %v", parsed.Title, err)
		return nil
	}
	return r
}

func (i *Identifier) searchTV(parsed scanner.ParsedFilename) *SearchResult {
	r, err := i.provider.SearchTV(parsed.Title, parsed.Year)
	if err != nil {
		log.Printf("Identify: tv search miss for %q: %v", parsed.Title, err)
		return nil
	}
	return r
}

func (i *Identifier) fetchDetails(id int64, mediaType models.MediaType) *models.Metadata {
	var (
		meta *models.Metadata
		err  error
	)
	if mediaType == models.MediaTypeTV {
		meta, err = i.provider.TVDetails(id)
	} else {
		meta, err = i.provider.MovieDetails(id)
	}
	if err != nil {
		log.Printf("Identify: detail fetch failed for tmdb %d: %v", id, err)
		return nil
	}
	return meta
}
