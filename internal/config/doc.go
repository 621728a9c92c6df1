// Package config handles configuration loading and merging for recommender.
//
// # Configuration Precedence
//
// Configuration values are resolved in the following order (highest to lowest priority):
//
//  1. CLI flags (--provider, --model, --theme, --no-color, --debug, ...)
//  2. Environment variables (RECOMMENDER_*, provider API keys, NO_COLOR)
//  3. YAML config file (.recommender.yaml in the working directory or
//     ~/.config/recommender/.recommender.yaml)
//  4. Hardcoded defaults
//
// When a higher-priority source sets a value, it overrides any lower-priority values.
// The source that won is kept per key in Config.Sources.
//
// # Environment Variables
//
//   - GROQ_API_KEY, OPENAI_API_KEY, OPENROUTER_API_KEY, GEMINI_API_KEY: key for the selected provider
//   - SERPER_API_KEY, TAVILY_API_KEY: search backends; DuckDuckGo needs none
//   - RECOMMENDER_PROVIDER, RECOMMENDER_MODEL, RECOMMENDER_THEME, RECOMMENDER_ADDR
//   - RECOMMENDER_DEBUG: "true" or "1" for debug logging
//   - RECOMMENDER_CONFIG: explicit config file path
//   - NO_COLOR: any non-empty value disables colors
package config
