package room

type Video struct {
	Id           string `json:"id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
	AuthorName   string `json:"author_name"`
}

type SetVideosParams struct {
	Videos []Video
	RoomId string
}

type AddVideoParams struct {
	Video  Video
	RoomId string
}
