package fakeconsole

import (
	"fmt"
	"html"
	"net/url"
	"strings"
)

func quote(address string) string {
	return url.QueryEscape(address)
}

func renderLogin(list string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s Administrative Authentication</title></head><body>\n", html.EscapeString(list))
	fmt.Fprintf(&b, "<FORM METHOD=POST ACTION=\"/mailman/admin/%s/members\">\n", html.EscapeString(list))
	b.WriteString("<INPUT TYPE=\"hidden\" NAME=\"csrf_token\" VALUE=\"login-tok\">\n")
	b.WriteString("List Administrator Password: <INPUT TYPE=\"password\" NAME=\"adminpw\" SIZE=\"30\">\n")
	b.WriteString("<INPUT TYPE=\"SUBMIT\" NAME=\"admlogin\" VALUE=\"Let me in...\">\n")
	b.WriteString("</FORM></body></html>\n")
	return b.String()
}

func renderDirectory(list, key string, rows []Member) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<HTML><HEAD><TITLE>%s Administration</TITLE></HEAD><BODY>\n", html.EscapeString(list))
	b.WriteString("<h2>Membership List</h2>\n")
	action := fmt.Sprintf("/mailman/admin/%s/members", list)
	if key != "" {
		action += "?letter=" + url.QueryEscape(key)
	}
	fmt.Fprintf(&b, "<FORM action=\"%s\" method=\"POST\">\n", html.EscapeString(action))
	b.WriteString("<INPUT name=\"csrf_token\" type=\"HIDDEN\" value=\"tok-dir\">\n")
	b.WriteString("<table border=\"2\">\n")
	b.WriteString("<tr><td colspan=\"4\">Find member <INPUT name=\"findmember\" type=\"TEXT\" value=\"\"></td></tr>\n")
	for _, m := range rows {
		q := html.EscapeString(quote(m.Address))
		addr := html.EscapeString(m.Address)
		b.WriteString("<tr>\n")
		fmt.Fprintf(&b, "<td><a href=\"../options/%s/%s\">%s</a><INPUT name=\"%s_realname\" type=\"TEXT\" value=\"\"><INPUT name=\"user\" type=\"HIDDEN\" value=\"%s\"></td>\n",
			html.EscapeString(list), addr, addr, q, q)
		fmt.Fprintf(&b, "<td><INPUT name=\"%s_mod\" type=\"CHECKBOX\" value=\"off\"></td>\n", q)
		switch {
		case m.Bounce:
			fmt.Fprintf(&b, "<td><INPUT name=\"%s_nomail\" type=\"CHECKBOX\" value=\"on\" CHECKED>[bounce]</td>\n", q)
		case m.Blocked || m.BounceHold:
			fmt.Fprintf(&b, "<td><INPUT name=\"%s_nomail\" type=\"CHECKBOX\" value=\"on\" CHECKED>[B]</td>\n", q)
		default:
			fmt.Fprintf(&b, "<td><INPUT name=\"%s_nomail\" type=\"CHECKBOX\" value=\"off\"></td>\n", q)
		}
		fmt.Fprintf(&b, "<td><INPUT name=\"%s_digest\" type=\"RADIO\" value=\"0\" CHECKED>off <INPUT name=\"%s_digest\" type=\"RADIO\" value=\"1\">on ", q, q)
		fmt.Fprintf(&b, "<select name=\"%s_language\"><option value=\"en\" selected>English</option><option value=\"de\">Deutsch</option></select></td>\n", q)
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table>\n")
	b.WriteString("<INPUT name=\"allmodbit_val\" type=\"RADIO\" value=\"0\">off <INPUT name=\"allmodbit_val\" type=\"RADIO\" value=\"1\">on\n")
	b.WriteString("<INPUT name=\"allmodbit_btn\" type=\"SUBMIT\" value=\"Set\">\n")
	b.WriteString("<INPUT name=\"setmemberopts_btn\" type=\"SUBMIT\" value=\"Submit Your Changes\">\n")
	b.WriteString("</FORM>\n")
	b.WriteString("<FORM action=\"../logout\" method=\"GET\"><INPUT type=\"SUBMIT\" name=\"logout\" value=\"Logout\"></FORM>\n")
	b.WriteString("</BODY></HTML>\n")
	return b.String()
}

func renderOptions(list string, m Member) string {
	disabled := m.Blocked || m.Bounce || m.BounceHold
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s membership configuration for %s</title></head><body>\n",
		html.EscapeString(list), html.EscapeString(m.Address))
	if m.Bounce || m.BounceHold {
		b.WriteString("<p><em>Your membership has been disabled due to excessive bounces.</em></p>\n")
	}
	action := fmt.Sprintf("/mailman/options/%s/%s", list, url.PathEscape(m.Address))
	fmt.Fprintf(&b, "<FORM action=\"%s\" method=\"POST\">\n", html.EscapeString(action))
	b.WriteString("<INPUT name=\"csrf_token\" type=\"HIDDEN\" value=\"opt-tok\">\n")
	b.WriteString("<table><tr><td>Mail delivery</td><td>\n")
	if disabled {
		b.WriteString("<INPUT name=\"disablemail\" type=\"RADIO\" value=\"0\">Enabled <INPUT name=\"disablemail\" type=\"RADIO\" value=\"1\" CHECKED>Disabled\n")
	} else {
		b.WriteString("<INPUT name=\"disablemail\" type=\"RADIO\" value=\"0\" CHECKED>Enabled <INPUT name=\"disablemail\" type=\"RADIO\" value=\"1\">Disabled\n")
	}
	b.WriteString("</td></tr>\n")
	b.WriteString("<tr><td>Set globally</td><td><INPUT name=\"deliver-globally\" type=\"CHECKBOX\" value=\"1\"></td></tr>\n")
	b.WriteString("</table>\n")
	b.WriteString("<INPUT name=\"options-submit\" type=\"SUBMIT\" value=\"Submit My Changes\">\n")
	b.WriteString("</FORM>\n")
	fmt.Fprintf(&b, "<FORM action=\"%s\" method=\"POST\"><INPUT name=\"unsub\" type=\"SUBMIT\" value=\"Unsubscribe\"></FORM>\n", html.EscapeString(action))
	b.WriteString("</body></html>\n")
	return b.String()
}
