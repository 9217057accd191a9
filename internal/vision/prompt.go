package vision

// analysisInstruction is the fixed instruction sent with every frame. The
// schema and the four type values are part of the component contract; keep
// them in sync with models.MediaType.
const analysisInstruction = `You are analyzing a single image frame from a short-form video. Identify any media content visibly embedded in the frame - music player overlays, video titles, article headlines, book covers, and similar.

For each media item found, extract:
- "type": one of "music", "video", "article", "book"
- "platform": the platform it appears on (spotify, youtube, apple_music, etc.), or null if unknown
- "title": the title shown, or null if unknown
- "creator": the artist, author, channel or creator, or null if unknown
- "confidence": your confidence from 0 to 1

Respond ONLY with valid JSON matching this schema, no commentary:
{"media": [{"type": "...", "platform": "...", "title": "...", "creator": "...", "confidence": 0.0}]}

If no media content is visible, respond with {"media": []}.`
