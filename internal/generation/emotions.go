package generation

// EmotionStyle steers the quote prompt. It is never returned to callers of GenerateQuote.
type EmotionStyle struct {
	Style   string
	Length  string
	Example string
}

// Supported emotion tags.
const (
	EmotionLove       = "Love"
	EmotionSadness    = "Sadness"
	EmotionHappiness  = "Happiness"
	EmotionAnger      = "Anger"
	EmotionFear       = "Fear"
	EmotionHope       = "Hope"
	EmotionPeace      = "Peace / Calm"
	EmotionLoneliness = "Loneliness"
	EmotionMotivation = "Motivation"
)

// DefaultEmotion supplies the style for unknown tags.
const DefaultEmotion = EmotionHope

// Emotions lists the supported tags in display order.
var Emotions = []string{
	EmotionLove,
	EmotionSadness,
	EmotionHappiness,
	EmotionAnger,
	EmotionFear,
	EmotionHope,
	EmotionPeace,
	EmotionLoneliness,
	EmotionMotivation,
}

var emotionStyles = map[string]EmotionStyle{
	EmotionLove:       {Style: "Soft, poetic, heartfelt", Length: "1-2 lines", Example: "In your smile, I found my home."},
	EmotionSadness:    {Style: "Reflective, slow-paced, emotional", Length: "2-3 lines", Example: "Some goodbyes don't echo in words, they echo in silence."},
	EmotionHappiness:  {Style: "Light, energetic, uplifting", Length: "1-2 lines", Example: "Joy is the sunshine we create within."},
	EmotionAnger:      {Style: "Sharp, bold, direct", Length: "1-2 lines", Example: "Even silence screams when justice is denied."},
	EmotionFear:       {Style: "Tense, reflective, dramatic", Length: "2-3 lines", Example: "Fear isn’t the shadow. It’s the silence before the storm."},
	EmotionHope:       {Style: "Uplifting, forward-looking, gentle", Length: "2-3 lines", Example: "Even the darkest skies make room for morning light."},
	EmotionPeace:      {Style: "Minimal, flowing, meditative", Length: "1-2 lines", Example: "Peace isn’t a place. It’s a pause."},
	EmotionLoneliness: {Style: "Quiet, introspective, tender", Length: "2-3 lines", Example: "In a room full of echoes, my voice was the only one missing."},
	EmotionMotivation: {Style: "Bold, energetic, empowering", Length: "1-2 lines", Example: "You weren’t made to break, you were made to rise."},
}

// ResolveEmotion returns the style for tag. Unknown tags get the
// DefaultEmotion style and ok=false.
func ResolveEmotion(tag string) (EmotionStyle, bool) {
	if style, ok := emotionStyles[tag]; ok {
		return style, true
	}
	return emotionStyles[DefaultEmotion], false
}

// IsEmotion reports whether tag is one of the supported emotions.
func IsEmotion(tag string) bool {
	_, ok := emotionStyles[tag]
	return ok
}

// Languages are the translation targets offered to users.
// TranslateText accepts any label.
var Languages = []string{
	"Spanish",
	"French",
	"German",
	"Italian",
	"Portuguese",
	"Japanese",
	"Hindi",
	"Arabic",
	"Russian",
}
