package types

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Image is an inline image attached to a message.
type Image struct {
	// Base64 holds the raw image bytes, base64 encoded without a data URL prefix.
	Base64 string

	// MIMEType defaults to image/png when empty.
	MIMEType string
}

// MediaType returns the MIME type, falling back to image/png.
func (i Image) MediaType() string {
	if i.MIMEType == "" {
		return "image/png"
	}
	return i.MIMEType
}

// DataURL renders the image as a data: URL.
func (i Image) DataURL() string {
	return "data:" + i.MediaType() + ";base64," + i.Base64
}

// Message is a single provider-neutral conversation message.
type Message struct {
	Role    MessageRole
	Content string
	Images  []Image
}

func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// WithImage returns a copy of the message with a base64 PNG attached.
// Empty payloads are ignored.
func (m Message) WithImage(base64PNG string) Message {
	if base64PNG == "" {
		return m
	}
	images := make([]Image, len(m.Images), len(m.Images)+1)
	copy(images, m.Images)
	m.Images = append(images, Image{Base64: base64PNG, MIMEType: "image/png"})
	return m
}

// ModelInfo describes the model behind a provider.
type ModelInfo struct {
	Name          string
	Provider      string
	MaxTokens     int
	SupportsTools bool
	SupportsImage bool
}
