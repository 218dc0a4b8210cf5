package extract

const fieldExtractPrompt = `You are an input extraction system for a consultation dialogue. The user wrote a free-text reply; recover any of the following fields it contains.

Fields and their value formats:
- "category": one of "career","wealth","love","marriage","health","study","relationship","timing","decision","personality"
- "numbers": array of exactly three integers between 1 and 9
- "character": a single Chinese character or single word the user offered
- "birth_year": four-digit year
- "birth_month": integer 1-12
- "birth_day": integer 1-31
- "birth_hour": integer 0-23, or -1 if the user says they do not know it
- "gender": "male" or "female"
- "personality": a four-letter type such as "INTJ"
- "color": a color word the user mentioned as on their mind
- "direction": a compass direction such as "southeast"
- "time_certainty": "certain", "uncertain" or "unknown" about the birth hour

Current stage of the dialogue: %s
Fields already known (do NOT re-extract these): %s

Respond ONLY with a JSON object mapping field names to values. No markdown, no explanation. Example:
{"birth_year":1992,"gender":"female"}

If the text contains none of the fields, respond with an empty object: {}

User reply:
%s`
