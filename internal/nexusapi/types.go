// Package nexusapi is a hybrid REST v1 / GraphQL v2 client for the Nexus
// Mods API: key validation and download-link resolution use REST v1 (the
// GraphQL schema doesn't expose premium-gated CDN links), while collection
// and mod metadata lookups use GraphQL.
package nexusapi

// ValidateResponse is the body of GET /v1/users/validate.json.
type ValidateResponse struct {
	UserID      int    `json:"user_id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	IsPremium   bool   `json:"is_premium"`
	IsSupporter bool   `json:"is_supporter"`
	Email       string `json:"email"`
	ProfileURL  string `json:"profile_url"`
}

// FileInfo is an element of GET /v1/games/{domain}/mods/{id}/files.json,
// and the full body of GET /v1/games/{domain}/mods/{id}/files/{fileId}.json.
type FileInfo struct {
	FileID          int    `json:"file_id"`
	Name            string `json:"name"`
	Version         string `json:"version"`
	CategoryName    string `json:"category_name"`
	FileName        string `json:"file_name"`
	SizeKb          int64  `json:"size_kb"`
	UploadedTime    string `json:"uploaded_time"`
	Md5             string `json:"md5"`
	ContentPreview  string `json:"content_preview_link"`
}

// DownloadLink is an element of GET .../download_link.json.
type DownloadLink struct {
	URI          string `json:"URI"`
	Name         string `json:"name"`
	ShortName    string `json:"short_name"`
}

// ModData is the GraphQL-shaped subset of mod metadata used by the
// collection fetch path (GetMod).
type ModData struct {
	Uid              string `graphql:"uid" json:"uid"`
	ModID            int    `graphql:"modId" json:"modId"`
	Name             string `graphql:"name" json:"name"`
	Summary          string `graphql:"summary" json:"summary"`
	Version          string `graphql:"version" json:"version"`
	Author           string `graphql:"author" json:"author"`
	GameDomainName   string `graphql:"gameDomainName" json:"gameDomainName"`
}

// CollectionRevision is the GraphQL shape of a published collection revision,
// enough to resolve the CDN-hosted collection.json's download URL.
type CollectionRevision struct {
	Revision        int    `graphql:"revision" json:"revision"`
	CollectionSlug  string `graphql:"collectionSlug" json:"collectionSlug"`
	AdultContent    bool   `graphql:"adultContent" json:"adultContent"`
	DownloadLink    string `graphql:"downloadLink" json:"downloadLink"`
}
