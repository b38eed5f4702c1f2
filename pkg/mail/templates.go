package mail

import "html/template"

var bookingReceivedTmpl = template.Must(template.New("bookingReceived").Parse(`
<h2>New booking received</h2>
<p>A new booking is waiting for review.</p>
<ul>
  <li><strong>Reference:</strong> {{.BookingReference}}</li>
  <li><strong>Client:</strong> {{.Client.FirstName}} {{.Client.LastName}}</li>
  <li><strong>Email:</strong> {{.Client.Email}}</li>
  <li><strong>Phone:</strong> {{.Client.Phone}}</li>
  <li><strong>Passengers:</strong> {{.Passengers}}</li>
  <li><strong>Service:</strong> {{.ServiceType}}</li>
  <li><strong>Payment:</strong> {{.PaymentMethod}}</li>
</ul>
`))

var bookingConfirmedTmpl = template.Must(template.New("bookingConfirmed").Parse(`
<h2>Your booking is confirmed</h2>
<p>Dear {{.Client.FirstName}},</p>
<p>Your shuttle booking <strong>{{.BookingReference}}</strong> has been confirmed.</p>
{{if .Journey.Outbound}}{{if .Journey.Outbound.PickupTime}}
<p>Your pickup time is <strong>{{.Journey.Outbound.PickupTime}}</strong>.</p>
{{end}}{{end}}
<p>Thank you for travelling with us.</p>
`))

var bookingRejectedTmpl = template.Must(template.New("bookingRejected").Parse(`
<h2>Booking update</h2>
<p>Dear {{.Client.FirstName}},</p>
<p>Unfortunately we cannot accommodate your booking <strong>{{.BookingReference}}</strong>.</p>
<p>Please contact us if you would like to discuss alternatives.</p>
`))

var reviewRequestTmpl = template.Must(template.New("reviewRequest").Parse(`
<h2>How was your ride?</h2>
<p>Dear {{.Client.FirstName}},</p>
<p>We hope you enjoyed your trip ({{.BookingReference}}). We would love to hear your feedback.</p>
<p>Your review helps us improve and helps other travellers choose with confidence.</p>
`))
