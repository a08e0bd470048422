package config

import (
	"fmt"
	"strings"
)

// LanguageConfig is one entry of the TTS language catalog.
type LanguageConfig struct {
	Code    string   `mapstructure:"code" json:"code"`         // catalog code used by clients: a, b, j, z, f
	Name    string   `mapstructure:"name" json:"name"`         // display name
	TTSLang string   `mapstructure:"tts_lang" json:"tts_lang"` // language tag sent to the TTS engine
	Voices  []string `mapstructure:"voices" json:"voices"`
}

// Validate checks that the language entry has all required fields.
func (c *LanguageConfig) Validate() error {
	if c.Code == "" {
		return fmt.Errorf("language config: code is required")
	}
	if c.Name == "" {
		return fmt.Errorf("language %q: name is required", c.Code)
	}
	if len(c.Voices) == 0 {
		return fmt.Errorf("language %q: at least one voice is required", c.Code)
	}
	for _, v := range c.Voices {
		if len(v) < 4 || v[2] != '_' {
			return fmt.Errorf("language %q: malformed voice id %q", c.Code, v)
		}
	}
	return nil
}

// HasVoice reports whether voice belongs to this language.
func (c *LanguageConfig) HasVoice(voice string) bool {
	for _, v := range c.Voices {
		if v == voice {
			return true
		}
	}
	return false
}

// EngineLanguage returns the tag sent to the TTS engine, falling back to the code.
func (c *LanguageConfig) EngineLanguage() string {
	if c.TTSLang != "" {
		return c.TTSLang
	}
	return c.Code
}

// Clone creates a deep copy of the language configuration.
func (c *LanguageConfig) Clone() *LanguageConfig {
	return &LanguageConfig{
		Code:    c.Code,
		Name:    c.Name,
		TTSLang: c.TTSLang,
		Voices:  append([]string(nil), c.Voices...),
	}
}

// VoiceInfo describes a voice for the languages listing.
type VoiceInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Gender string `json:"gender"`
}

// DescribeVoice derives display data from a voice id such as "af_heart":
// the second letter gives the gender, the part after "_" the name.
func DescribeVoice(id string) VoiceInfo {
	info := VoiceInfo{ID: id, Gender: "Male"}
	if len(id) > 1 && id[1] == 'f' {
		info.Gender = "Female"
	}
	name := id
	if _, after, ok := strings.Cut(id, "_"); ok {
		name = after
	}
	if name != "" {
		name = strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
	}
	info.Name = name
	return info
}

// DefaultLanguages is the catalog used when the config file defines none.
func DefaultLanguages() []LanguageConfig {
	return []LanguageConfig{
		{Code: "a", Name: "American English", TTSLang: "en-us", Voices: []string{"af_heart", "af_bella", "af_nicole", "af_sarah", "af_sky", "am_adam", "am_michael"}},
		{Code: "b", Name: "British English", TTSLang: "en-gb", Voices: []string{"bf_emma", "bf_isabella", "bm_george", "bm_lewis"}},
		{Code: "j", Name: "Japanese", TTSLang: "ja", Voices: []string{"jf_alpha", "jf_gongitsune", "jm_kumo"}},
		{Code: "z", Name: "Mandarin Chinese", TTSLang: "zh", Voices: []string{"zf_xiaobei", "zf_xiaoni", "zf_xiaoxiao", "zm_yunjian"}},
		{Code: "f", Name: "French", TTSLang: "fr-fr", Voices: []string{"ff_siwis"}},
	}
}
