package letters

import (
	"strings"

	"credit-workers/internal/models"
)

// Builtin returns the built-in template for a dispute type. Used when the
// organization's catalog is empty (the DefaultTemplateID sentinel).
func Builtin(disputeType string) models.LetterTemplate {
	switch strings.ToLower(disputeType) {
	case "inquiry":
		return builtinTemplate("Inquiry Dispute", inquiryDisputeContent, inquiryVariables)
	case "collection", "collections":
		return builtinTemplate("Collection Dispute", collectionDisputeContent, collectionVariables)
	case "late_payment", "late payment":
		return builtinTemplate("Late Payment Dispute", latePaymentDisputeContent, latePaymentVariables)
	case "charge_off", "charge-off", "chargeoff":
		return builtinTemplate("Charge-Off Dispute", chargeOffDisputeContent, chargeOffVariables)
	default:
		return builtinTemplate("Standard Dispute", standardDisputeContent, standardVariables)
	}
}

func builtinTemplate(name, content string, variables []string) models.LetterTemplate {
	return models.LetterTemplate{
		ID:        DefaultTemplateID,
		Name:      name,
		Content:   content,
		Variables: variables,
		Active:    true,
	}
}

var commonSignatureVariables = []string{
	"client_name", "client_street", "client_city", "client_state",
	"client_zip", "client_ssn_masked", "client_dob_masked",
}

var standardVariables = append([]string{
	"date", "bureau_name", "bureau_address", "account_name",
	"account_number_masked", "dispute_type", "dispute_reason",
	"dispute_basis", "action_requested", "supporting_documents",
	"correction_requested",
}, commonSignatureVariables...)

const standardDisputeContent = `Date: {{date}}

{{bureau_name}}
{{bureau_address}}

Re: Request for Investigation of Inaccurate Information

Dear Sir/Madam,

I am writing to dispute the following information in my credit file. The items I dispute are also noted on the attached copy of my credit report.

DISPUTED ITEM INFORMATION:
Account Name: {{account_name}}
Account Number: {{account_number_masked}}
Dispute Type: {{dispute_type}}
Reason for Dispute: {{dispute_reason}}

This item is {{dispute_basis}} and I am requesting that it be removed or corrected. I am requesting that you {{action_requested}}.

Enclosed are copies of {{supporting_documents}} supporting my position. Please investigate this matter and {{correction_requested}} as soon as possible.

Under the Fair Credit Reporting Act (15 U.S.C. § 1681 et seq.), you are required to investigate and respond to this dispute within 30 days.

Sincerely,

{{client_name}}
{{client_street}}
{{client_city}}, {{client_state}} {{client_zip}}
{{client_ssn_masked}}
Date of Birth: {{client_dob_masked}}`

var inquiryVariables = append([]string{
	"date", "bureau_name", "bureau_address", "account_name",
	"inquiry_date", "dispute_reason",
}, commonSignatureVariables...)

const inquiryDisputeContent = `Date: {{date}}

{{bureau_name}}
{{bureau_address}}

Re: Unauthorized Inquiry Dispute

Dear Sir/Madam,

I am writing to dispute the following unauthorized inquiry appearing on my credit report:

DISPUTED INQUIRY:
Creditor Name: {{account_name}}
Date of Inquiry: {{inquiry_date}}
Reason for Dispute: {{dispute_reason}}

I did not authorize this inquiry and request that it be removed from my credit report immediately. This inquiry is negatively affecting my credit score without my consent.

Under the Fair Credit Reporting Act (FCRA), I have the right to dispute inaccurate information. Please investigate this unauthorized inquiry and remove it from my credit file within 30 days.

Sincerely,

{{client_name}}
{{client_street}}
{{client_city}}, {{client_state}} {{client_zip}}
{{client_ssn_masked}}
Date of Birth: {{client_dob_masked}}`

var collectionVariables = append([]string{
	"date", "bureau_name", "bureau_address", "account_name",
	"account_number_masked", "collection_amount", "dispute_reason",
	"dispute_basis",
}, commonSignatureVariables...)

const collectionDisputeContent = `Date: {{date}}

{{bureau_name}}
{{bureau_address}}

Re: Dispute of Collection Account

Dear Sir/Madam,

I am writing to dispute a collection account that appears on my credit report:

COLLECTION ACCOUNT DETAILS:
Collection Agency: {{account_name}}
Account Number: {{account_number_masked}}
Amount: {{collection_amount}}
Reason for Dispute: {{dispute_reason}}

This item is {{dispute_basis}}.

I request that you conduct a thorough investigation of this collection account. If you cannot verify the accuracy and completeness of this information, it must be deleted from my credit report in accordance with the Fair Credit Reporting Act.

Please provide me with proof of verification once your investigation is complete. If this item cannot be verified, please remove it immediately.

Sincerely,

{{client_name}}
{{client_street}}
{{client_city}}, {{client_state}} {{client_zip}}
{{client_ssn_masked}}
Date of Birth: {{client_dob_masked}}`

var latePaymentVariables = append([]string{
	"date", "bureau_name", "bureau_address", "account_name",
	"account_number_masked", "late_payment_dates", "dispute_reason",
	"dispute_basis",
}, commonSignatureVariables...)

const latePaymentDisputeContent = `Date: {{date}}

{{bureau_name}}
{{bureau_address}}

Re: Dispute of Late Payment Reporting

Dear Sir/Madam,

I am writing to dispute the late payment(s) being reported on my credit file for the following account:

ACCOUNT INFORMATION:
Creditor: {{account_name}}
Account Number: {{account_number_masked}}
Late Payment Date(s): {{late_payment_dates}}
Reason for Dispute: {{dispute_reason}}

This item is {{dispute_basis}}.

I request that you investigate this matter and correct the inaccurate late payment reporting. My payment history should accurately reflect my responsible management of this account.

Please conduct a full investigation and provide me with the results. If you cannot verify the accuracy of these late payment notations, they must be removed from my credit report.

Sincerely,

{{client_name}}
{{client_street}}
{{client_city}}, {{client_state}} {{client_zip}}
{{client_ssn_masked}}
Date of Birth: {{client_dob_masked}}`

var chargeOffVariables = append([]string{
	"date", "bureau_name", "bureau_address", "account_name",
	"account_number_masked", "charge_off_amount", "charge_off_date",
	"dispute_reason", "dispute_basis",
}, commonSignatureVariables...)

const chargeOffDisputeContent = `Date: {{date}}

{{bureau_name}}
{{bureau_address}}

Re: Dispute of Charge-Off Account

Dear Sir/Madam,

I am disputing the following charge-off account appearing on my credit report:

CHARGE-OFF ACCOUNT:
Creditor: {{account_name}}
Account Number: {{account_number_masked}}
Charge-Off Amount: {{charge_off_amount}}
Charge-Off Date: {{charge_off_date}}
Reason for Dispute: {{dispute_reason}}

This item is {{dispute_basis}}.

Under the Fair Credit Reporting Act, you must investigate disputed items and verify their accuracy. I request that you conduct a thorough investigation of this charge-off. If you cannot verify all details of this account, it must be removed from my credit report.

Please respond with the results of your investigation within 30 days as required by law.

Sincerely,

{{client_name}}
{{client_street}}
{{client_city}}, {{client_state}} {{client_zip}}
{{client_ssn_masked}}
Date of Birth: {{client_dob_masked}}`
