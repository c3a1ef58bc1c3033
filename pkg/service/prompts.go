package service

// Prompt templates. Language names are substituted from configuration so
// the pipeline works for any pair, not just the default one.

const segmentTranslationPrompt = `Translate the following segments from %[1]s to %[2]s.
Return ONLY a valid JSON array with exactly this structure (no markdown, no explanation):
[{"start": 0.0, "end": 5.2, "text": "%[2]s translation"}]

Segments to translate:
%[3]s`

const plainTranslationPrompt = `Translate the following text from %[1]s to %[2]s. Return ONLY the %[2]s translation, with no explanation or commentary.

%[1]s text:
%[3]s`

const articlePrompt = `You will receive the full transcript of an audio recording in %[1]s. Translate it into %[2]s in full, word for word, omitting and summarizing nothing.

The only formatting allowed:
- One main title (# ...) reflecting the subject of the recording
- Section headings (## ...) dividing the content into natural, coherent parts

The text under each heading must be the direct, faithful translation of what is said, in the speaker's own words, as if the reader were hearing the recording itself. Do not rephrase, comment, or summarize. Do not open with an introductory sentence about the recording.

Full %[1]s transcript:
%[3]s`
