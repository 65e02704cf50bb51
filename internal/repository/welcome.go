package repository

// WelcomeTitle names the note seeded into an empty root.
const WelcomeTitle = "Welcome"

// WelcomeContent is the bootstrap body of the welcome note.
const WelcomeContent = `# Welcome to MarkNote

This is your first note! Start writing here...

## Getting around

- Notes are plain Markdown files in one folder.
- The most recently edited note is always at the top.
- Rename a note to rename its file.

> Drag mode lets you move whole paragraphs, lists, tables and code blocks.

` + "```" + `
Blocks are separated by blank lines.
` + "```" + `
`
