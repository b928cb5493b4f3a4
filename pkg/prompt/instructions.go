package prompt

// DiffInstructions is the system block describing the response format
// accepted by diffxml.Parse.
const DiffInstructions = `Respond with the files you change using the XML format below and nothing else.

<root>
  <file name="relative/path/to/file.ext">
    <replace>ENTIRE NEW FILE CONTENTS</replace>
  </file>
</root>

Rules:
1. Every changed file gets exactly one <file> element with a name attribute
   holding its path relative to the repository root, as listed in <file_map>.
2. Each <file> element contains exactly one <replace> element holding the
   complete new contents of the file. Partial snippets, line diffs and
   placeholders such as "rest of file unchanged" are not allowed.
3. To create a file, use a new path. To empty a file, use an empty
   <replace></replace>. Files cannot be deleted or renamed.
4. A file name may appear only once per response.
5. Paths must not be absolute and must not contain "..".
6. Escape "&" as &amp;, "<" as &lt; and ">" as &gt; inside <replace>, or wrap
   the contents in <![CDATA[ ... ]]>.
7. Omit files you do not change.
`
