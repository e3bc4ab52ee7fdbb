package functions

import (
	"fmt"
	"regexp"
	"strings"

	"mercator-hq/cascade/pkg/less/ast"
)

var formatToken = regexp.MustCompile(`(?i)%[sda]`)

func registerStrings(r *Registry) {
	r.Add("e", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 1, "e"); err != nil {
			return nil, err
		}
		return ast.NewQuoted(`"`, stringValue(args[0]), true, c.Index, c.File), nil
	})

	r.Add("escape", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 1, "escape"); err != nil {
			return nil, err
		}
		s := encodeURI(stringValue(args[0]), false)
		s = strings.NewReplacer("=", "%3D", ":", "%3A", "#", "%23", ";", "%3B", "(", "%28", ")", "%29").Replace(s)
		return ast.NewAnonymous(s, c.Index, c.File), nil
	})

	r.Add("%", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 1, "%"); err != nil {
			return nil, err
		}
		format := args[0]
		result := stringValue(format)
		for _, a := range args[1:] {
			loc := formatToken.FindStringIndex(result)
			if loc == nil {
				break
			}
			token := result[loc[0]:loc[1]]
			value := ast.CSS(a)
			if q, ok := a.(*ast.Quoted); ok && strings.EqualFold(token, "%s") {
				value = q.Value
			}
			if token[1] >= 'A' && token[1] <= 'Z' {
				value = encodeURI(value, true)
			}
			result = result[:loc[0]] + value + result[loc[1]:]
		}
		result = strings.ReplaceAll(result, "%%", "%")
		return requote(format, result, c), nil
	})

	r.Add("replace", func(c *Call, args []ast.Node) (any, error) {
		if err := requireArgs(args, 3, "replace"); err != nil {
			return nil, err
		}
		pattern, flags := stringValue(args[1]), ""
		if len(args) > 3 {
			flags = stringValue(args[3])
		}
		if strings.Contains(flags, "i") {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, argumentError("invalid pattern %q: %v", stringValue(args[1]), err)
		}
		replacement := ast.CSS(args[2])
		if q, ok := args[2].(*ast.Quoted); ok {
			replacement = q.Value
		}
		replacement = strings.ReplaceAll(replacement, "$&", "${0}")

		subject := stringValue(args[0])
		var result string
		if strings.Contains(flags, "g") {
			result = re.ReplaceAllString(subject, replacement)
		} else if loc := re.FindStringSubmatchIndex(subject); loc != nil {
			var dst []byte
			dst = re.ExpandString(dst, replacement, subject, loc)
			result = subject[:loc[0]] + string(dst) + subject[loc[1]:]
		} else {
			result = subject
		}
		return requote(args[0], result, c), nil
	})
}

// requote returns value as a string with the quoting of like.
func requote(like ast.Node, value string, c *Call) *ast.Quoted {
	if q, ok := like.(*ast.Quoted); ok {
		return ast.NewQuoted(q.Quote, value, q.Escaped, c.Index, c.File)
	}
	return ast.NewQuoted("", value, false, c.Index, c.File)
}

const uriUnreserved = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_.!~*'()"

// encodeURI percent-encodes s like the encodeURI/encodeURIComponent pair
// found in browsers.
func encodeURI(s string, component bool) string {
	keep := uriUnreserved
	if !component {
		keep += ";,/?:@&=+$#"
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		b := s[i]
		if strings.IndexByte(keep, b) >= 0 {
			sb.WriteByte(b)
			continue
		}
		sb.WriteString(fmt.Sprintf("%%%02X", b))
	}
	return sb.String()
}
