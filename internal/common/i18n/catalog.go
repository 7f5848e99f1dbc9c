package i18n

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

const (
	KeyGreeting         = "chatbot.greeting"
	KeyChatError        = "chatbot.error"
	KeyTempPassword     = "signup.temp_password"
	KeyRegistered       = "signup.registered"
	KeyIncompleteNotice = "voice.incomplete_notice"
	KeyRecording        = "voice.recording"
	KeyProcessing       = "voice.processing"
)

var catalog = map[string]map[string]string{
	"en": {
		KeyGreeting:                    "Hello! I will help you register. Please tell me your name.",
		KeyChatError:                   "Sorry, something went wrong. Please try again.",
		KeyTempPassword:                "Registration successful! Your temporary password is: %s",
		KeyRegistered:                  "Registration successful!",
		KeyIncompleteNotice:            "Some required details are missing. Please record again and say your name and phone number.",
		KeyRecording:                   "Recording... %d s",
		KeyProcessing:                  "Processing your recording...",
		"error.validation":             "Please fill in all required fields correctly.",
		"error.incomplete_data":        "Name and phone number are required.",
		"error.microphone_denied":      "Could not access the microphone. Please allow microphone access.",
		"error.timeout":                "The server took too long to respond. Please try again.",
		"error.duplicate_registration": "This phone number is already registered. Please log in instead.",
		"error.invalid_credentials":    "Invalid phone number or password.",
		"error.partial_registration":   "Your account was created but your work profile could not be saved. Please try again.",
		"error.session_expired":        "This conversation has expired. Please start again.",
		"error.turn_in_progress":       "Please wait for the reply.",
		"error.registration_failed":    "Registration failed. Please try again.",
	},
	"hi": {
		KeyGreeting:                    "नमस्ते! मैं आपकी मदद करूंगा। कृपया अपना नाम बताइए।",
		KeyChatError:                   "क्षमा करें, कुछ गलत हो गया। कृपया पुनः प्रयास करें।",
		KeyTempPassword:                "पंजीकरण सफल! आपका अस्थायी पासवर्ड है: %s",
		KeyRegistered:                  "पंजीकरण सफल!",
		KeyIncompleteNotice:            "कुछ ज़रूरी जानकारी नहीं मिली। कृपया फिर से रिकॉर्ड करें और अपना नाम और फ़ोन नंबर बताएं।",
		KeyRecording:                   "रिकॉर्डिंग... %d सेकंड",
		KeyProcessing:                  "आपकी रिकॉर्डिंग प्रोसेस हो रही है...",
		"error.validation":             "कृपया सभी आवश्यक जानकारी सही भरें।",
		"error.incomplete_data":        "नाम और फ़ोन नंबर आवश्यक हैं।",
		"error.microphone_denied":      "माइक्रोफ़ोन तक पहुँच नहीं मिली। कृपया अनुमति दें।",
		"error.timeout":                "सर्वर ने जवाब देने में बहुत समय लिया। कृपया पुनः प्रयास करें।",
		"error.duplicate_registration": "यह फ़ोन नंबर पहले से पंजीकृत है। कृपया लॉगिन करें।",
		"error.invalid_credentials":    "गलत फ़ोन नंबर या पासवर्ड।",
		"error.partial_registration":   "आपका खाता बन गया लेकिन कार्य प्रोफ़ाइल सहेजी नहीं जा सकी। कृपया पुनः प्रयास करें।",
		"error.session_expired":        "यह बातचीत समाप्त हो गई है। कृपया फिर से शुरू करें।",
		"error.turn_in_progress":       "कृपया जवाब की प्रतीक्षा करें।",
		"error.registration_failed":    "पंजीकरण विफल रहा। कृपया पुनः प्रयास करें।",
	},
}

// Message looks key up in lang, falling back to English and then to the key itself.
func Message(lang, key string, args ...interface{}) string {
	msg, ok := catalog[lang][key]
	if !ok {
		msg, ok = catalog["en"][key]
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// Greeting is the assistant turn that opens a conversation.
func Greeting(lang string) string {
	return Message(lang, KeyGreeting)
}

var commonMarkers = []string{"complete", "success"}

var completionMarkers = map[string][]string{
	"hi": {"पूर्ण", "सफल"},
	"mr": {"पूर्ण", "यशस्वी"},
	"bn": {"সম্পূর্ণ", "সফল"},
}

// CompletionMarkers returns the phrases that signal the conversation
// service has gathered everything it needs: the common markers, those of
// lang, then those of every other language, since replies are not always in
// the active language.
func CompletionMarkers(lang string) []string {
	markers := append(append([]string{}, commonMarkers...), completionMarkers[lang]...)
	others := make([]string, 0, len(completionMarkers))
	for l := range completionMarkers {
		if l != lang {
			others = append(others, l)
		}
	}
	sort.Strings(others)

	seen := make(map[string]bool, len(markers))
	for _, m := range markers {
		seen[m] = true
	}
	for _, l := range others {
		for _, m := range completionMarkers[l] {
			if !seen[m] {
				seen[m] = true
				markers = append(markers, m)
			}
		}
	}
	return markers
}

// IsCompletion reports whether a word of reply starts with a completion
// marker. Whole-word matching keeps "incomplete" or "अपूर्ण" from counting.
func IsCompletion(lang, reply string) bool {
	words := strings.FieldsFunc(strings.ToLower(reply), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsMark(r) && !unicode.IsDigit(r)
	})
	markers := CompletionMarkers(lang)
	for _, w := range words {
		for _, marker := range markers {
			if strings.HasPrefix(w, marker) {
				return true
			}
		}
	}
	return false
}
