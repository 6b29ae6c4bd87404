package extractor

import "github.com/naglis/mediaresolver/internal/models"

// assemble wraps synthesized entries into a manifest. A playlist with
// exactly one entry collapses into that entry, which then takes over the
// playlist's identity (id and title) while keeping its own formats. Entry
// order is preserved as given.
func assemble(pl models.Playlist) *models.Manifest {
	if len(pl.Entries) == 1 {
		item := pl.Entries[0]
		item.ID = pl.ID
		if pl.Title != "" {
			item.Title = pl.Title
		}
		if len(item.Thumbnails) == 0 {
			item.Thumbnails = pl.Thumbnails
		}
		return models.SingleManifest(item)
	}
	return models.PlaylistManifest(pl)
}
