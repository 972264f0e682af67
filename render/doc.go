/*
Package render turns jigsaw pages into HTTP responses.

Model loads every template under a file system root into one
html/template set. Each template is named by its slash-separated path
relative to the root, so a piece proposing "tracker/bug_detail" is served by
tracker/bug_detail.html. Files whose base name starts with an underscore are
parsed but meant to be used only through {{template}}, for layouts and
partials.

A page template is executed with the view's context as its dot: every
context key is a field, and two extra entries are provided unless a piece
already used the name:

	request  the *http.Request being served
	mode     the view's mode

Errors are rendered with error.html, or with the template named by the
error's ErrorTemplateName method, with these entries:

	error        the error
	status       the HTTP status code
	status_text  the status text
	request      the *http.Request

Besides html/template's builtins, every template can call

	now                            time.Now
	markdown STRING                sanitized HTML from Markdown source
	humanize_time TIME             "3 minutes ago"
	comma INT                      "1,024"
	bytes INT                      "1.0 KiB"
	ordinal INT                    "3rd"
	field OBJECT NAME              a named field of a store record
	query REQUEST KEY VALUE        the request's query string with KEY set

JSON renders the same pages as JSON documents.
*/
package render
