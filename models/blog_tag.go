package models

// BlogTag is the relational row backing one element of BlogPost.Tags
type BlogTag struct {
	ID         uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	BlogPostID string `json:"blog_post_id" gorm:"type:uuid;not null;index:idx_blog_tag_blog_post_id;uniqueIndex:idx_blog_tag_unique"`
	Value      string `json:"value" gorm:"type:text;not null;index:idx_blog_tag_value;uniqueIndex:idx_blog_tag_unique"`
}

// TagRowsFor builds tag rows for a post from its tag set
func TagRowsFor(postID string, tags []string) []BlogTag {
	rows := make([]BlogTag, 0, len(tags))
	for _, t := range tags {
		rows = append(rows, BlogTag{BlogPostID: postID, Value: t})
	}
	return rows
}

// TagValues flattens tag rows back into the post's tag set
func TagValues(rows []BlogTag) []string {
	tags := make([]string, 0, len(rows))
	for _, r := range rows {
		tags = append(tags, r.Value)
	}
	return tags
}
