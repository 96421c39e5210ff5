package locale

import "strings"

// Locale describes one supported consultation language: its ISO 639-1 code,
// English name, the localized greeting shown on a fresh session, and the
// reply directive injected into the doctor system prompt.
type Locale struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Greeting  string `json:"greeting"`
	Directive string `json:"-"`
}

// DefaultCode is used whenever detection fails or a language is unsupported.
const DefaultCode = "en"

// Normalize lowercases a language code and strips any region subtag, so
// "zh-CN" and "pt_BR" resolve to their base catalog entries.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if idx := strings.IndexAny(code, "-_"); idx > 0 {
		code = code[:idx]
	}
	return code
}

func defaultDirective(language string) string {
	return "CRITICAL: You MUST respond in " + language + " only. Be professional and empathetic, " +
		"provide helpful medical guidance, and always recommend consulting a healthcare professional for serious concerns."
}

// Seed provides the supported language catalog.
func Seed() []Locale {
	return []Locale{
		{
			Code:      "en",
			Name:      "English",
			Greeting:  "Hello! I'm Dr. AI, your medical assistant. How can I help you today?",
			Directive: defaultDirective("English"),
		},
		{
			Code:      "es",
			Name:      "Spanish",
			Greeting:  "¡Hola! Soy el Dr. IA, su asistente médico. ¿Cómo puedo ayudarle hoy?",
			Directive: defaultDirective("Spanish"),
		},
		{
			Code:      "fr",
			Name:      "French",
			Greeting:  "Bonjour! Je suis Dr. IA, votre assistant médical. Comment puis-je vous aider aujourd'hui?",
			Directive: defaultDirective("French"),
		},
		{
			Code:      "de",
			Name:      "German",
			Greeting:  "Hallo! Ich bin Dr. KI, Ihr medizinischer Assistent. Wie kann ich Ihnen heute helfen?",
			Directive: defaultDirective("German"),
		},
		{
			Code:      "pt",
			Name:      "Portuguese",
			Greeting:  "Olá! Sou o Dr. IA, seu assistente médico. Como posso ajudá-lo hoje?",
			Directive: defaultDirective("Portuguese"),
		},
		{
			Code:      "ru",
			Name:      "Russian",
			Greeting:  "Здравствуйте! Я доктор ИИ, ваш медицинский помощник. Как я могу вам помочь сегодня?",
			Directive: defaultDirective("Russian"),
		},
		{
			Code:      "zh",
			Name:      "Chinese",
			Greeting:  "您好！我是AI医生，您的医疗助手。今天我能为您做些什么？",
			Directive: defaultDirective("Chinese"),
		},
		{
			Code:      "ja",
			Name:      "Japanese",
			Greeting:  "こんにちは！私はAI医師、あなたの医療アシスタントです。今日はどのようにお手伝いできますか？",
			Directive: defaultDirective("Japanese"),
		},
		{
			Code:      "ar",
			Name:      "Arabic",
			Greeting:  "مرحباً! أنا الدكتور الذكي، مساعدك الطبي. كيف يمكنني مساعدتك اليوم؟",
			Directive: defaultDirective("Arabic"),
		},
		{
			Code:     "hi",
			Name:     "Hindi",
			Greeting: "नमस्ते! मैं डॉ. एआई हूं, आपका चिकित्सीय सहायक। मैं आज आपकी कैसे मदद कर सकता हूं?",
			// The product wants Hinglish here, not pure Hindi: Hindi with
			// common English medical terms mixed in.
			Directive: "CRITICAL: You MUST respond in Hinglish, Hindi mixed with common English medical terms " +
				"such as headache, doctor, medicine, symptoms, treatment. Never reply in plain English or any other language. " +
				"Be professional and empathetic, and always recommend consulting a healthcare professional for serious concerns.",
		},
		{
			Code:      "bn",
			Name:      "Bengali",
			Greeting:  "হ্যালো! আমি ডাঃ এআই, আপনার চিকিৎসা সহকারী। আজ আমি কীভাবে আপনাকে সাহায্য করতে পারি?",
			Directive: defaultDirective("Bengali"),
		},
		{
			Code:      "te",
			Name:      "Telugu",
			Greeting:  "నమస్కారం! నేను డాక్టర్ ఎఐ, మీ వైద్య సహాయకుడు. నేను ఈరోజు మీకు ఎలా సహాయపడగలను?",
			Directive: defaultDirective("Telugu"),
		},
		{
			Code:      "ta",
			Name:      "Tamil",
			Greeting:  "வணக்கம்! நான் டாக்டர் ஏஐ, உங்கள் மருத்துவ உதவியாளர். நான் இன்று உங்களுக்கு எப்படி உதவ முடியும்?",
			Directive: defaultDirective("Tamil"),
		},
		{
			Code:      "mr",
			Name:      "Marathi",
			Greeting:  "नमस्कार! मी डॉ. एआय, तुमचा वैद्यकीय सहाय्यक. मी आज तुमची कशी मदत करू शकतो?",
			Directive: defaultDirective("Marathi"),
		},
		{
			Code:      "gu",
			Name:      "Gujarati",
			Greeting:  "નમસ્તે! હું ડૉ. એઆઈ, તમારો વૈદ્યકીય સહાયક. હું આજે તમારી કેવી રીતે મદદ કરી શકું?",
			Directive: defaultDirective("Gujarati"),
		},
		{
			Code:      "kn",
			Name:      "Kannada",
			Greeting:  "ನಮಸ್ಕಾರ! ನಾನು ಡಾ. ಎಐ, ನಿಮ್ಮ ವೈದ್ಯಕೀಯ ಸಹಾಯಕ. ನಾನು ಇಂದು ನಿಮಗೆ ಹೇಗೆ ಸಹಾಯ ಮಾಡಬಹುದು?",
			Directive: defaultDirective("Kannada"),
		},
		{
			Code:      "ml",
			Name:      "Malayalam",
			Greeting:  "നമസ്കാരം! ഞാൻ ഡോ. എഐ, നിങ്ങളുടെ വൈദ്യ സഹായി. ഞാൻ ഇന്ന് നിങ്ങളെ എങ്ങനെ സഹായിക്കാം?",
			Directive: defaultDirective("Malayalam"),
		},
		{
			Code:      "pa",
			Name:      "Punjabi",
			Greeting:  "ਸਤ ਸ੍ਰੀ ਅਕਾਲ! ਮੈਂ ਡਾ. ਏਆਈ, ਤੁਹਾਡਾ ਵੈਦਕੀ ਸਹਾਇਕ. ਮੈਂ ਅੱਜ ਤੁਹਾਡੀ ਕਿਵੇਂ ਮਦਦ ਕਰ ਸਕਦਾ ਹਾਂ?",
			Directive: defaultDirective("Punjabi"),
		},
		{
			Code:      "ur",
			Name:      "Urdu",
			Greeting:  "السلام علیکم! میں ڈاکٹر اے آئی، آپ کا طبی معاون۔ میں آج آپ کی کیسے مدد کر سکتا ہوں؟",
			Directive: defaultDirective("Urdu"),
		},
	}
}
