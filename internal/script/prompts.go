package script

import (
	"encoding/json"
	"fmt"
)

func buildPackagePrompt(genre string) string {
	return fmt.Sprintf(`You are an expert viral YouTube Shorts creator specializing in %[1]s content.

Create a complete YouTube Short content package based on the topic: "%[1]s"

CORE GOAL:
Make viewers click because of the TITLE and keep watching because the video feels like a LOOP.

REQUIREMENTS:

TITLE:
- Very short (5-10 words)
- Extremely curiosity-driven
- Creates a strong "wait, what?" reaction
- Avoid generic words
- No emojis, no hashtags

SCRIPT:
- Spoken, natural, conversational tone
- 50-60 seconds long
- FIRST LINE must be almost identical to the LAST LINE
- The first line should introduce a bold or intriguing statement
- No symbols or text that text-to-speech can't pronounce
- The script must END with either: "that's why..." OR "so..." OR "and this is why..."
- When the video restarts, the ending should connect smoothly back to the beginning, creating a seamless loop

DESCRIPTION:
- 2-3 short lines
- Builds curiosity without giving away the answer
- Encourages viewers to watch till the end

HASHTAGS:
- 5-10 relevant and trending hashtags
- Related to curiosity, knowledge, facts, psychology, or learning

OUTPUT FORMAT:
Return ONLY valid JSON in the exact format below.
Do not include explanations, markdown, or extra text.

{
    "title": "",
    "script": "",
    "description": "",
    "tags": []
}
`, genre)
}

func buildQueriesPrompt(chunks []string, fullText string) string {
	encoded, err := json.Marshal(chunks)
	if err != nil {
		encoded = []byte("[]")
	}
	return fmt.Sprintf(`You are generating stock video search queries for Pexels.
Rules:
- Exactly one query per chunk, in chunk order
- Queries must be 3-7 words
- Use generic, visual, stock-video-friendly concepts
- Avoid abstract language that has no visuals
- Focus on broad themes (brain, science, technology, psychology, people, abstract visuals)
- Do NOT repeat the chunk text
- Do NOT explain anything
- The query must be likely to exist as a stock video
- Output VALID JSON ONLY

Input chunks:
%s

Each query should follow the core theme of the full script below and fit the
"Curiosity & Knowledge" category:
%s

Return the output in this JSON format:
{
    "titles": ["query 1", "query 2"]
}
`, encoded, fullText)
}
