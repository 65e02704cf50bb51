package mcpserver

// LayoutContract describes how MarkNote lays notes out on disk and how the
// block tools split a note. Clients should read it before writing notes.
const LayoutContract = `# MarkNote Layout

MarkNote keeps every note as one Markdown file directly inside a single
root folder.

## Notes

- The title of a note is its file name without the ` + "`.md`" + ` extension.
  Titles are unique inside the root.
- There are no folders. Files in sub-directories and files with any
  other extension are not notes.
- Titles must not contain ` + "`/`" + ` or ` + "`\\`" + `.
- Content is stored exactly as written, UTF-8, no frontmatter required.
  When a YAML frontmatter block is present its ` + "`title`" + ` and ` + "`tags`" + `
  fields are indexed for search, as are inline ` + "`#tags`" + `.
- Notes are listed newest first by last edit time.

## Blocks

` + "`list_blocks`" + ` and ` + "`move_block`" + ` work on coarse blocks, not a full
Markdown tree:

- A blank line ends the current block.
- A fenced code region (` + "```" + `) is always one block, blank lines
  included.
- Table rows, list items and quote lines start a new block unless the
  line before was of the same kind. A thematic break is always its own
  block. Any other line continues the block it follows.
- Kinds: heading, list, quote, table, code, separator, paragraph.
- After a move, blocks are joined with exactly one blank line between
  them.

## Writing

- ` + "`write_note`" + ` creates the note when it does not exist and replaces it
  otherwise.
- Pass the ` + "`checksum`" + ` returned by ` + "`read_note`" + ` to refuse the write when
  the note changed in the meantime.
`
