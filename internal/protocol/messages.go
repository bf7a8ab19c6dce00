package protocol

import "github.com/desertthunder/stereo/internal/models"

// Message types sent by clients.
const (
	TypeHeartbeat                = "heartbeat"
	TypeDeleteTracks             = "delete-tracks"
	TypeUpdateRating             = "update-rating"
	TypeIncPlayCount             = "inc-play-count"
	TypeGetRows                  = "get-rows"
	TypeGetRowIndex              = "get-row-index"
	TypeAddTrack                 = "add-track"
	TypeAddTracks                = "add-tracks"
	TypeUpdateTrack              = "update-track"
	TypeGetTrackInfo             = "get-track-info"
	TypeSetCollection            = "set-collection"
	TypeCreateCollection         = "create-collection"
	TypeGetPathCompletions       = "get-path-completions"
	TypeSearch                   = "search"
	TypeSearchCancelAll          = "search-cancel-all"
	TypeSearchTrack              = "search-track"
	TypeCollectionContainsID     = "collection-contains-id"
	TypeCheckImportFrom          = "check-import-from"
	TypeImportFrom               = "import-from"
	TypeCreateYTAnonPlaylist     = "create-yt-anon-playlist"
	TypeValidateTrack            = "validate-track"
	TypeExportTracksToCollection = "export-tracks-to-collection"
	TypeGetRandomTrack           = "get-random-track"
)

// Message types sent by the server.
const (
	TypeTrackUpdate                  = "track-update"
	TypeReloadTracks                 = "reload-tracks"
	TypeRows                         = "rows"
	TypeRowIndex                     = "row-index"
	TypeBackendInfo                  = "backend-info"
	TypeTrackInfo                    = "track-info"
	TypeCollectionInfo               = "collection-info"
	TypeDefaultCollection            = "default-collection"
	TypePathCompletions              = "path-completions"
	TypeSearchResult                 = "search-result"
	TypeSearchResults                = "search-results"
	TypeSearchComplete               = "search-complete"
	TypeCollectionContainsIDResponse = "collection-contains-id-response"
	TypeNotification                 = "notification"
	TypeImportFromValid              = "import-from-valid"
	TypeYTAnonPlaylist               = "yt-anon-playlist"
	TypeValidateTrackReply           = "validate-track-reply"
	TypeTrackFound                   = "track-found"
	TypeTrackNotFound                = "track-not-found"
	TypePlayID                       = "play-id"
	TypeError                        = "error"
)

// Search kinds.
const (
	KindFuzzy    = "fuzzy"
	KindByArtist = "by-artist"
	KindByLabel  = "by-label"
)

// Notification kinds.
const (
	NotifyInfo    = "info"
	NotifyWarn    = "warn"
	NotifyWarning = "warning"
	NotifyError   = "error"
)

// Heartbeat is sent by the client and echoed unchanged by the server.
type Heartbeat struct {
	Timestamp int64 `json:"timestamp"` // unix milliseconds
}

type DeleteTracks struct {
	IDs []string `json:"ids"`
}

// UpdateRating sets or clears (nil) the rating of a track.
type UpdateRating struct {
	YTID   string `json:"yt_id"`
	Rating *int   `json:"rating"`
}

type IncPlayCount struct {
	YTID string `json:"yt_id"`
}

// GetRows requests rows [StartRow, EndRow) of the current collection.
type GetRows struct {
	Correlation
	StartRow    int                `json:"startRow"`
	EndRow      int                `json:"endRow"`
	SortModel   models.SortModel   `json:"sortModel,omitempty"`
	FilterModel models.FilterModel `json:"filterModel,omitempty"`
}

// GetRowIndex asks where a track sits under the given sort and filter.
type GetRowIndex struct {
	Correlation
	YTID        string             `json:"yt_id"`
	SortModel   models.SortModel   `json:"sortModel,omitempty"`
	FilterModel models.FilterModel `json:"filterModel,omitempty"`
}

type AddTrack struct {
	Track             models.Track `json:"track"`
	OverwriteExisting bool         `json:"overwrite_existing"`
}

type AddTracks struct {
	Tracks            []models.Track `json:"tracks"`
	OverwriteExisting bool           `json:"overwrite_existing"`
}

// UpdateTrack replaces Old with New; the two may have different ids.
type UpdateTrack struct {
	Old models.Track `json:"old"`
	New models.Track `json:"new"`
}

type GetTrackInfo struct {
	YTID string `json:"yt_id"`
}

type SetCollection struct {
	Correlation
	Path string `json:"path"`
}

type CreateCollection struct {
	Path string `json:"path"`
}

type GetPathCompletions struct {
	Correlation
	PathPrefix string `json:"path_prefix"`
}

// Search starts a catalogue search; a new search replaces the running one.
type Search struct {
	Query   string `json:"query"`
	QueryID int    `json:"query_id"`
	Limit   int    `json:"limit"`
	Kind    string `json:"kind"`
}

type SearchCancelAll struct{}

// SearchTrack looks for the first catalogue match of a title and artist.
type SearchTrack struct {
	Correlation
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

type CollectionContainsID struct {
	Correlation
	YTID string `json:"yt_id"`
}

type CheckImportFrom struct {
	Path string `json:"path"`
}

type ImportFrom struct {
	Path         string `json:"path"`
	KeepUserData bool   `json:"keep_user_data"`
}

type CreateYTAnonPlaylist struct {
	Correlation
	YTIDs []string `json:"yt_ids"`
}

// ValidateTrack checks a raw track object before it is submitted.
type ValidateTrack struct {
	Correlation
	Track map[string]any `json:"track"`
}

// ExportTracksToCollection copies tracks into another collection file.
type ExportTracksToCollection struct {
	Tracks     []models.Track `json:"tracks"`
	Collection string         `json:"collection"`
}

type GetRandomTrack struct{}

type TrackUpdate struct {
	Track models.Track `json:"track"`
}

// ReloadTracks tells clients to refetch their rows.
type ReloadTracks struct{}

type Rows struct {
	Correlation
	Rows    []models.Track `json:"rows"`
	LastRow *int           `json:"last_row"`
}

type RowIndex struct {
	Correlation
	Index int `json:"index"`
}

type BackendInfo struct {
	Version string `json:"version"`
}

type TrackInfo struct {
	Track models.Track `json:"track"`
}

// CollectionInfo answers set-collection (ID set) or announces a collection change (ID zero).
type CollectionInfo struct {
	ID              int                `json:"id,omitempty"`
	Collection      *models.Collection `json:"collection"`
	ErrorMessage    *string            `json:"error_message"`
	PathCompletions []string           `json:"path_completions"`
}

func (m *CollectionInfo) RequestID() int      { return m.ID }
func (m *CollectionInfo) SetRequestID(id int) { m.ID = id }

type DefaultCollection struct {
	Collection models.Collection `json:"collection"`
}

type PathCompletions struct {
	Correlation
	Paths []string `json:"paths"`
}

type SearchResult struct {
	QueryID int          `json:"query_id"`
	Track   models.Track `json:"track"`
}

type SearchResults struct {
	QueryID int            `json:"query_id"`
	Tracks  []models.Track `json:"tracks"`
}

type SearchComplete struct {
	QueryID int `json:"query_id"`
}

type CollectionContainsIDResponse struct {
	Correlation
	ContainsID bool `json:"contains_id"`
}

type Notification struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

type ImportFromValid struct {
	Path    string `json:"path"`
	IsValid bool   `json:"is_valid"`
}

type YTAnonPlaylist struct {
	Correlation
	URL string `json:"url"`
}

type ValidateTrackReply struct {
	Correlation
	IsValid bool `json:"is_valid"`
}

type TrackFound struct {
	Correlation
	Track  models.Track `json:"track"`
	Exists bool         `json:"exists"`
}

type TrackNotFound struct {
	Correlation
}

// PlayID asks clients to start playing a track.
type PlayID struct {
	YTID string `json:"yt_id"`
}

// Error answers a correlated request that could not be served.
//
// The client also synthesizes it for calls that time out or lose their connection.
type Error struct {
	Correlation
	Message string `json:"message"`
}

func (Heartbeat) Type() string                    { return TypeHeartbeat }
func (DeleteTracks) Type() string                 { return TypeDeleteTracks }
func (UpdateRating) Type() string                 { return TypeUpdateRating }
func (IncPlayCount) Type() string                 { return TypeIncPlayCount }
func (GetRows) Type() string                      { return TypeGetRows }
func (GetRowIndex) Type() string                  { return TypeGetRowIndex }
func (AddTrack) Type() string                     { return TypeAddTrack }
func (AddTracks) Type() string                    { return TypeAddTracks }
func (UpdateTrack) Type() string                  { return TypeUpdateTrack }
func (GetTrackInfo) Type() string                 { return TypeGetTrackInfo }
func (SetCollection) Type() string                { return TypeSetCollection }
func (CreateCollection) Type() string             { return TypeCreateCollection }
func (GetPathCompletions) Type() string           { return TypeGetPathCompletions }
func (Search) Type() string                       { return TypeSearch }
func (SearchCancelAll) Type() string              { return TypeSearchCancelAll }
func (SearchTrack) Type() string                  { return TypeSearchTrack }
func (CollectionContainsID) Type() string         { return TypeCollectionContainsID }
func (CheckImportFrom) Type() string              { return TypeCheckImportFrom }
func (ImportFrom) Type() string                   { return TypeImportFrom }
func (CreateYTAnonPlaylist) Type() string         { return TypeCreateYTAnonPlaylist }
func (ValidateTrack) Type() string                { return TypeValidateTrack }
func (ExportTracksToCollection) Type() string     { return TypeExportTracksToCollection }
func (GetRandomTrack) Type() string               { return TypeGetRandomTrack }
func (TrackUpdate) Type() string                  { return TypeTrackUpdate }
func (ReloadTracks) Type() string                 { return TypeReloadTracks }
func (Rows) Type() string                         { return TypeRows }
func (RowIndex) Type() string                     { return TypeRowIndex }
func (BackendInfo) Type() string                  { return TypeBackendInfo }
func (TrackInfo) Type() string                    { return TypeTrackInfo }
func (CollectionInfo) Type() string               { return TypeCollectionInfo }
func (DefaultCollection) Type() string            { return TypeDefaultCollection }
func (PathCompletions) Type() string              { return TypePathCompletions }
func (SearchResult) Type() string                 { return TypeSearchResult }
func (SearchResults) Type() string                { return TypeSearchResults }
func (SearchComplete) Type() string               { return TypeSearchComplete }
func (CollectionContainsIDResponse) Type() string { return TypeCollectionContainsIDResponse }
func (Notification) Type() string                 { return TypeNotification }
func (ImportFromValid) Type() string              { return TypeImportFromValid }
func (YTAnonPlaylist) Type() string               { return TypeYTAnonPlaylist }
func (ValidateTrackReply) Type() string           { return TypeValidateTrackReply }
func (TrackFound) Type() string                   { return TypeTrackFound }
func (TrackNotFound) Type() string                { return TypeTrackNotFound }
func (PlayID) Type() string                       { return TypePlayID }
func (Error) Type() string                        { return TypeError }

var registry = map[string]func() Message{
	TypeHeartbeat:                    func() Message { return &Heartbeat{} },
	TypeDeleteTracks:                 func() Message { return &DeleteTracks{} },
	TypeUpdateRating:                 func() Message { return &UpdateRating{} },
	TypeIncPlayCount:                 func() Message { return &IncPlayCount{} },
	TypeGetRows:                      func() Message { return &GetRows{} },
	TypeGetRowIndex:                  func() Message { return &GetRowIndex{} },
	TypeAddTrack:                     func() Message { return &AddTrack{} },
	TypeAddTracks:                    func() Message { return &AddTracks{} },
	TypeUpdateTrack:                  func() Message { return &UpdateTrack{} },
	TypeGetTrackInfo:                 func() Message { return &GetTrackInfo{} },
	TypeSetCollection:                func() Message { return &SetCollection{} },
	TypeCreateCollection:             func() Message { return &CreateCollection{} },
	TypeGetPathCompletions:           func() Message { return &GetPathCompletions{} },
	TypeSearch:                       func() Message { return &Search{} },
	TypeSearchCancelAll:              func() Message { return &SearchCancelAll{} },
	TypeSearchTrack:                  func() Message { return &SearchTrack{} },
	TypeCollectionContainsID:         func() Message { return &CollectionContainsID{} },
	TypeCheckImportFrom:              func() Message { return &CheckImportFrom{} },
	TypeImportFrom:                   func() Message { return &ImportFrom{} },
	TypeCreateYTAnonPlaylist:         func() Message { return &CreateYTAnonPlaylist{} },
	TypeValidateTrack:                func() Message { return &ValidateTrack{} },
	TypeExportTracksToCollection:     func() Message { return &ExportTracksToCollection{} },
	TypeGetRandomTrack:               func() Message { return &GetRandomTrack{} },
	TypeTrackUpdate:                  func() Message { return &TrackUpdate{} },
	TypeReloadTracks:                 func() Message { return &ReloadTracks{} },
	TypeRows:                         func() Message { return &Rows{} },
	TypeRowIndex:                     func() Message { return &RowIndex{} },
	TypeBackendInfo:                  func() Message { return &BackendInfo{} },
	TypeTrackInfo:                    func() Message { return &TrackInfo{} },
	TypeCollectionInfo:               func() Message { return &CollectionInfo{} },
	TypeDefaultCollection:            func() Message { return &DefaultCollection{} },
	TypePathCompletions:              func() Message { return &PathCompletions{} },
	TypeSearchResult:                 func() Message { return &SearchResult{} },
	TypeSearchResults:                func() Message { return &SearchResults{} },
	TypeSearchComplete:               func() Message { return &SearchComplete{} },
	TypeCollectionContainsIDResponse: func() Message { return &CollectionContainsIDResponse{} },
	TypeNotification:                 func() Message { return &Notification{} },
	TypeImportFromValid:              func() Message { return &ImportFromValid{} },
	TypeYTAnonPlaylist:               func() Message { return &YTAnonPlaylist{} },
	TypeValidateTrackReply:           func() Message { return &ValidateTrackReply{} },
	TypeTrackFound:                   func() Message { return &TrackFound{} },
	TypeTrackNotFound:                func() Message { return &TrackNotFound{} },
	TypePlayID:                       func() Message { return &PlayID{} },
	TypeError:                        func() Message { return &Error{} },
}
