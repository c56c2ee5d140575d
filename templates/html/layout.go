package templates

import (
	"fmt"
	"html"
)

// renderLayout wraps trusted inner HTML in the branded layout. subject is
// escaped here.
func renderLayout(subject, innerHTML string) string {
	safeSubject := html.EscapeString(subject)

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>%s</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f3f6f4; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background: linear-gradient(135deg, #16a34a 0%%, #0f766e 100%%); padding: 40px 30px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 24px; font-weight: 700; }
    .content { padding: 40px 30px; color: #1f2937; line-height: 1.6; font-size: 15px; }
    .content table { width: 100%%; border-collapse: collapse; margin: 16px 0; }
    .content th, .content td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #e5e7eb; }
    .risk-High { color: #b91c1c; font-weight: 700; }
    .risk-Medium { color: #b45309; font-weight: 700; }
    .risk-Low { color: #15803d; }
    .footer { padding: 30px; text-align: center; color: #6b7280; font-size: 12px; border-top: 1px solid #e5e7eb; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>%s</h1>
    </div>
    <div class="content">
      %s
    </div>
    <div class="footer">
      <p>&copy; Mosquito Alert</p>
    </div>
  </div>
</body>
</html>`, safeSubject, safeSubject, innerHTML)
}
