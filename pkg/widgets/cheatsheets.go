package widgets

// builtinCheatsheets keys language tokens a query can contain.
var builtinCheatsheets = map[string]Cheatsheet{
	"regex": {
		Language: "regex",
		Sections: []CheatsheetSection{
			{Title: "Anchors", Entries: []string{"^ start of line", "$ end of line", `\b word boundary`}},
			{Title: "Classes", Entries: []string{`\d digit`, `\w word char`, `\s whitespace`, "[abc] set", "[^abc] negated set"}},
			{Title: "Quantifiers", Entries: []string{"* zero or more", "+ one or more", "? optional", "{n,m} range", "*? lazy"}},
			{Title: "Groups", Entries: []string{"(x) capture", "(?:x) non-capture", "(?P<name>x) named", "a|b alternation"}},
		},
	},
	"sql": {
		Language: "sql",
		Sections: []CheatsheetSection{
			{Title: "Query", Entries: []string{"SELECT cols FROM t WHERE cond", "GROUP BY col HAVING cond", "ORDER BY col DESC LIMIT n"}},
			{Title: "Joins", Entries: []string{"INNER JOIN t ON a = b", "LEFT JOIN keeps unmatched left rows", "CROSS JOIN cartesian product"}},
			{Title: "Mutation", Entries: []string{"INSERT INTO t (c) VALUES (v)", "UPDATE t SET c = v WHERE cond", "DELETE FROM t WHERE cond"}},
		},
	},
	"python": {
		Language: "python",
		Sections: []CheatsheetSection{
			{Title: "Collections", Entries: []string{"[x for x in xs if p(x)]", "{k: v for k, v in pairs}", "dict.get(key, default)"}},
			{Title: "Strings", Entries: []string{`f"{value:.2f}"`, `", ".join(items)`, "s.strip().split(',')"}},
			{Title: "Control", Entries: []string{"with open(p) as f:", "try/except ValueError as e:", "for i, x in enumerate(xs):"}},
		},
	},
	"go": {
		Language: "go",
		Sections: []CheatsheetSection{
			{Title: "Basics", Entries: []string{"v := value", "func f(x int) (int, error)", "defer cleanup()"}},
			{Title: "Collections", Entries: []string{"m := map[string]int{}", "s = append(s, x)", "for i, v := range s {}"}},
			{Title: "Concurrency", Entries: []string{"go f()", "ch := make(chan T, n)", "select { case v := <-ch: }"}},
		},
	},
	"git": {
		Language: "git",
		Sections: []CheatsheetSection{
			{Title: "Daily", Entries: []string{"git status", "git add -p", "git commit -m 'msg'", "git push origin branch"}},
			{Title: "History", Entries: []string{"git log --oneline --graph", "git diff HEAD~1", "git blame file"}},
			{Title: "Undo", Entries: []string{"git restore file", "git reset --soft HEAD~1", "git revert sha"}},
		},
	},
	"vim": {
		Language: "vim",
		Sections: []CheatsheetSection{
			{Title: "Motion", Entries: []string{"w next word", "0 line start", "$ line end", "gg / G file start/end"}},
			{Title: "Edit", Entries: []string{"dd delete line", "yy yank line", "p paste", "ciw change inner word"}},
			{Title: "Search", Entries: []string{"/pattern", "n next match", ":%s/old/new/g replace all"}},
		},
	},
	"bash": {
		Language: "bash",
		Sections: []CheatsheetSection{
			{Title: "Variables", Entries: []string{`name="value"`, `${name:-default}`, `$(command)`}},
			{Title: "Tests", Entries: []string{`[[ -f file ]]`, `[[ $a == $b ]]`, `[[ -z $var ]] empty`}},
			{Title: "Loops", Entries: []string{"for f in *.txt; do ...; done", "while read -r line; do ...; done"}},
		},
	},
}
